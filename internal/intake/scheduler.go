package intake

import "context"

// schedule queues a run for background processing. Scheduling an already
// in-flight run is a no-op; concurrency is bounded by the worker semaphore.
func (s *Service) schedule(runID string) {
	s.mu.Lock()
	if _, running := s.inflight[runID]; running {
		s.mu.Unlock()
		return
	}
	s.inflight[runID] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inflight, runID)
			s.mu.Unlock()
		}()

		s.sem <- struct{}{}
		defer func() { <-s.sem }()

		_ = s.ProcessRun(context.Background(), runID)
	}()
}
