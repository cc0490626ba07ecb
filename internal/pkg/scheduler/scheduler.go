package scheduler

import (
	"context"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job 后台任务。Run 返回错误只用于记录，不会中断调度
type Job interface {
	ID() string
	Run(ctx context.Context) error
}

// StateStore 持久化各任务的下次触发时间，重启后据此判定错过的触发
type StateStore interface {
	LoadNextRun(ctx context.Context, jobID string) (time.Time, bool, error)
	SaveNextRun(ctx context.Context, jobID string, next time.Time) error
}

// JobStatus 单个任务的运行状态快照
type JobStatus struct {
	ID        string     `json:"id"`
	Cadence   string     `json:"cadence"`
	NextRun   time.Time  `json:"next_run"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	Running   bool       `json:"running"`
}

type entry struct {
	job      Job
	cadence  string
	schedule cron.Schedule

	next    time.Time
	lastRun *time.Time
	lastErr string
	running bool
}

type action int

const (
	actionWait action = iota
	actionDispatch
	actionMisfire
	actionSkipRunning
)

// Scheduler 固定 worker 池上的周期任务调度器
// 同一任务最多一个实例在跑，错过的触发合并为一次，超出宽限期的触发直接丢弃
type Scheduler struct {
	mu      sync.Mutex
	entries map[string]*entry
	order   []string

	workers      int
	misfireGrace time.Duration
	store        StateStore

	taskCh chan string
	cancel context.CancelFunc
	wg     sync.WaitGroup
	parser cron.Parser
}

// New 创建调度器。store 可以为 nil，此时触发状态只保存在内存
func New(workers int, misfireGrace time.Duration, store StateStore) *Scheduler {
	if workers <= 0 {
		workers = 1
	}
	return &Scheduler{
		entries:      make(map[string]*entry),
		workers:      workers,
		misfireGrace: misfireGrace,
		store:        store,
		taskCh:       make(chan string),
		parser:       cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// Register 注册任务。cadence 支持标准 cron 表达式和 @every 间隔
func (s *Scheduler) Register(job Job, cadence string) error {
	schedule, err := s.parser.Parse(cadence)
	if err != nil {
		return fmt.Errorf("invalid cadence %q for job %s: %w", cadence, job.ID(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[job.ID()]; ok {
		return fmt.Errorf("job %s already registered", job.ID())
	}

	s.entries[job.ID()] = &entry{
		job:      job,
		cadence:  cadence,
		schedule: schedule,
	}
	s.order = append(s.order, job.ID())
	return nil
}

// Start 启动 worker 池和触发循环
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	now := time.Now()

	s.mu.Lock()
	for id, e := range s.entries {
		e.next = e.schedule.Next(now)
		if s.store != nil {
			if stored, ok, err := s.store.LoadNextRun(ctx, id); err != nil {
				log.Error("failed to load job state", "job", id, "err", err)
			} else if ok && stored.Before(e.next) {
				e.next = stored
			}
		}
	}
	s.mu.Unlock()

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}

	s.wg.Add(1)
	go s.loop(ctx)

	log.Info("scheduler started", "jobs", len(s.entries), "workers", s.workers)
}

// Stop 停止调度并等待在途任务结束
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	log.Info("scheduler stopped")
}

// RunNow 立刻触发一次任务，已在运行则拒绝
func (s *Scheduler) RunNow(ctx context.Context, jobID string) error {
	s.mu.Lock()
	e, ok := s.entries[jobID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("job %s not registered", jobID)
	}
	if e.running {
		s.mu.Unlock()
		return fmt.Errorf("job %s is already running", jobID)
	}
	e.running = true
	s.mu.Unlock()

	s.execute(ctx, jobID)
	return nil
}

// Status 返回所有任务的状态快照，按注册顺序
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]JobStatus, 0, len(s.order))
	for _, id := range s.order {
		e := s.entries[id]
		statuses = append(statuses, JobStatus{
			ID:        id,
			Cadence:   e.cadence,
			NextRun:   e.next,
			LastRun:   e.lastRun,
			LastError: e.lastErr,
			Running:   e.running,
		})
	}
	return statuses
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.tick(ctx, now)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	var due []string

	s.mu.Lock()
	for _, id := range s.order {
		e := s.entries[id]
		switch decide(e, now, s.misfireGrace) {
		case actionDispatch:
			e.running = true
			s.advance(ctx, e, now)
			due = append(due, id)
		case actionMisfire:
			log.Warn("job misfired, run skipped", "job", id, "scheduled", e.next, "grace", s.misfireGrace)
			s.advance(ctx, e, now)
		case actionSkipRunning:
			s.advance(ctx, e, now)
		}
	}
	s.mu.Unlock()

	for _, id := range due {
		select {
		case s.taskCh <- id:
		case <-ctx.Done():
			s.markDone(id, nil)
			return
		}
	}
}

// decide 判定某个任务在 now 时刻该做什么
func decide(e *entry, now time.Time, grace time.Duration) action {
	if e.next.After(now) {
		return actionWait
	}
	if now.Sub(e.next) > grace {
		return actionMisfire
	}
	if e.running {
		return actionSkipRunning
	}
	return actionDispatch
}

// advance 推进 next 直到越过 now，错过的触发合并成一次。调用方持锁
func (s *Scheduler) advance(ctx context.Context, e *entry, now time.Time) {
	next := e.schedule.Next(now)
	e.next = next
	if s.store != nil {
		if err := s.store.SaveNextRun(ctx, e.job.ID(), next); err != nil {
			log.Error("failed to persist job state", "job", e.job.ID(), "err", err)
		}
	}
}

func (s *Scheduler) worker(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case id := <-s.taskCh:
			s.execute(ctx, id)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, id string) {
	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return
	}

	start := time.Now()
	log.Info("job started", "job", id)

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("job panicked: %v", r)
			}
		}()
		return e.job.Run(ctx)
	}()

	if err != nil {
		log.Error("job failed", "job", id, "duration", time.Since(start), "err", err)
	} else {
		log.Info("job finished", "job", id, "duration", time.Since(start))
	}

	s.markDone(id, err)
}

func (s *Scheduler) markDone(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return
	}
	now := time.Now()
	e.running = false
	e.lastRun = &now
	if err != nil {
		e.lastErr = err.Error()
	} else {
		e.lastErr = ""
	}
}
