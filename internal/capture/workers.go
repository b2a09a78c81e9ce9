package capture

import (
	"context"
	"sync"

	"github.com/dtnitsch/org-remark/pkg/formatorg"
)

// Job is one tab of a group.
type Job struct {
	Index int
	URL   string
}

// Result holds the outcome of a processed job.
type Result struct {
	Index   int
	URL     string
	Capture *formatorg.Capture
	Error   error
}

// worker captures the tabs it receives until jobs is closed.
func (r *Runner) worker(ctx context.Context, id int, wg *sync.WaitGroup, jobs <-chan Job, results chan<- Result) {
	defer wg.Done()
	for job := range jobs {
		r.logger.Debug("capture: worker started tab", "worker_id", id, "url", job.URL)
		c, err := r.Chain(ctx, Request{URL: job.URL, Target: formatorg.TargetFrame})
		if err != nil {
			r.logger.Warn("capture: tab failed", "worker_id", id, "url", job.URL, "error", err)
		}
		results <- Result{Index: job.Index, URL: job.URL, Capture: c, Error: err}
	}
}

// Group captures urls concurrently as one TabGroup. Tabs keep the order
// of urls. A failed tab stays in the group without frames so the
// formatter reports it.
func (r *Runner) Group(ctx context.Context, urls []string, workerCount int, title string) (*formatorg.Capture, []Result) {
	if workerCount < 1 {
		workerCount = 1
	}
	if workerCount > len(urls) {
		workerCount = len(urls)
	}

	var wg sync.WaitGroup
	jobs := make(chan Job, len(urls))
	results := make(chan Result, len(urls))

	for w := 1; w <= workerCount; w++ {
		wg.Add(1)
		go r.worker(ctx, w, &wg, jobs, results)
	}
	for i, u := range urls {
		jobs <- Job{Index: i, URL: u}
	}
	close(jobs)

	wg.Wait()
	close(results)

	ordered := make([]Result, len(urls))
	for result := range results {
		ordered[result.Index] = result
	}

	group := &formatorg.Capture{
		Type:  formatorg.TypeTabGroup,
		Title: title,
		Tabs:  make([]*formatorg.Capture, 0, len(urls)),
	}
	for _, result := range ordered {
		tab := result.Capture
		if tab == nil {
			tab = &formatorg.Capture{Type: formatorg.TypeTabFrameChain, Target: formatorg.TargetFrame}
		}
		group.Tabs = append(group.Tabs, tab)
	}
	return group, ordered
}
