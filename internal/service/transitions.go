package service

// edges is the directed status graph the backend follows.
var edges = map[TaskStatus][]TaskStatus{
	StatusPlanning:             {StatusProcessing},
	StatusProcessing:           {StatusAwaitingConfirmation, StatusCompleted, StatusFailed},
	StatusAwaitingConfirmation: {StatusProcessing, StatusRejected},
}

// CanTransition reports whether to directly follows from.
func CanTransition(from, to TaskStatus) bool {
	for _, next := range edges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Reachable reports whether a poller that last saw from may next observe to.
// Polling can skip intermediate states, so any path through the graph counts,
// and seeing the same status again is always consistent.
func Reachable(from, to TaskStatus) bool {
	if from == to {
		return true
	}
	seen := map[TaskStatus]bool{from: true}
	queue := []TaskStatus{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range edges[cur] {
			if next == to {
				return true
			}
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}
