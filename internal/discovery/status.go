package discovery

import "github.com/sells-group/email-finder/internal/model"

// RunStatusFor derives the run status from aggregate crawl counts and the
// number of discovered (not generated) addresses.
func RunStatusFor(stats model.RunStats, discovered int) model.RunStatus {
	if stats.PagesFetched == 0 {
		policy := stats.RobotsSkipped + stats.Blocked
		if stats.PagesAttempted > 0 && policy == stats.PagesAttempted {
			return model.RunStatusBlocked
		}
		return model.RunStatusFailed
	}
	if discovered == 0 {
		return model.RunStatusNoContent
	}
	reachable := stats.PagesAttempted - stats.RobotsSkipped
	if stats.TimedOut || stats.PagesFailed*2 > reachable {
		return model.RunStatusPartial
	}
	return model.RunStatusSuccess
}
