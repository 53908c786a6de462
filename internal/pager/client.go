package pager

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"storyhub/internal/content"
	"storyhub/pkg/logger"
	"storyhub/pkg/models"
)

const (
	DefaultPageSize = 30
	DefaultTimeout  = 15 * time.Second
)

type State int

const (
	Idle State = iota
	Loading
	Ready
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Fetcher loads one page of items for a filter.
type Fetcher interface {
	Fetch(ctx context.Context, f content.Filter) ([]models.ContentItem, error)
}

// Snapshot is a point-in-time copy of the client state.
type Snapshot struct {
	State      State
	Items      []models.ContentItem
	HasMore    bool
	Page       int
	Generation uint64
	Err        error
}

func (s Snapshot) Loading() bool { return s.State == Loading }

type Option func(*Client)

func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithOnChange registers fn to run after every state transition. It is called
// without the client lock held, from whichever goroutine made the transition.
func WithOnChange(fn func(Snapshot)) Option {
	return func(c *Client) { c.onChange = fn }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Client accumulates pages of a filtered listing. At most one fetch per
// generation is in flight; a filter change starts a new generation and any
// response from an older one is dropped.
type Client struct {
	fetcher  Fetcher
	pageSize int
	timeout  time.Duration
	onChange func(Snapshot)
	log      *logrus.Entry

	mu       sync.Mutex
	filter   content.Filter
	state    State
	items    []models.ContentItem
	seen     map[int64]struct{}
	page     int
	hasMore  bool
	err      error
	gen      uint64
	loading  bool
	inflight sync.WaitGroup
}

func New(fetcher Fetcher, opts ...Option) *Client {
	c := &Client{
		fetcher:  fetcher,
		pageSize: DefaultPageSize,
		timeout:  DefaultTimeout,
		seen:     make(map[int64]struct{}),
		log:      logger.Module("pager"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) PageSize() int { return c.pageSize }

// SetFilter discards accumulated results and loads page 0 of f.
func (c *Client) SetFilter(f content.Filter) {
	c.mu.Lock()
	c.filter = f
	c.resetLocked()
	snap := c.startLocked(0)
	c.mu.Unlock()

	c.notify(snap)
}

// Refresh discards accumulated results and reloads page 0 of the current filter.
// Nothing from before the refresh is shown while it loads.
func (c *Client) Refresh() {
	c.mu.Lock()
	c.resetLocked()
	snap := c.startLocked(0)
	c.mu.Unlock()

	c.notify(snap)
}

// resetLocked clears the accumulated pages. HasMore starts out true until the
// first page says otherwise.
func (c *Client) resetLocked() {
	c.items = nil
	c.seen = make(map[int64]struct{})
	c.page = 0
	c.hasMore = true
}

// LoadMore requests the next page. It reports false without fetching when a
// fetch is already running, the last page was short, or the client is not Ready.
func (c *Client) LoadMore() bool {
	c.mu.Lock()
	if c.loading || !c.hasMore || c.state != Ready {
		c.mu.Unlock()
		return false
	}
	snap := c.startLocked(c.page + 1)
	c.mu.Unlock()

	c.notify(snap)
	return true
}

// Wait blocks until no fetch is in flight.
func (c *Client) Wait() {
	c.inflight.Wait()
}

func (c *Client) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Client) snapshotLocked() Snapshot {
	items := make([]models.ContentItem, len(c.items))
	copy(items, c.items)
	return Snapshot{
		State:      c.state,
		Items:      items,
		HasMore:    c.hasMore,
		Page:       c.page,
		Generation: c.gen,
		Err:        c.err,
	}
}

// startLocked moves to Loading and launches the fetch for page. Page 0 always
// opens a new generation.
func (c *Client) startLocked(page int) Snapshot {
	if page == 0 {
		c.gen++
	}
	gen := c.gen
	c.loading = true
	c.state = Loading
	c.err = nil

	f := c.filter
	f.Limit = c.pageSize
	f.Offset = page * c.pageSize

	c.inflight.Add(1)
	go c.fetch(gen, page, f)

	return c.snapshotLocked()
}

func (c *Client) fetch(gen uint64, page int, f content.Filter) {
	defer c.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	items, err := c.fetcher.Fetch(ctx, f)
	cancel()

	c.mu.Lock()
	if gen != c.gen {
		current := c.gen
		c.mu.Unlock()
		c.log.WithFields(logrus.Fields{"generation": gen, "current": current, "page": page}).
			Debug("dropping stale response")
		return
	}

	c.loading = false
	if err != nil {
		c.state = Error
		c.err = err
		snap := c.snapshotLocked()
		c.mu.Unlock()

		c.log.WithError(err).WithField("page", page).Warn("fetch failed")
		c.notify(snap)
		return
	}

	if page == 0 {
		c.items = make([]models.ContentItem, 0, len(items))
		c.seen = make(map[int64]struct{}, len(items))
	}
	for _, it := range items {
		if _, dup := c.seen[it.ID]; dup {
			continue
		}
		c.seen[it.ID] = struct{}{}
		c.items = append(c.items, it)
	}
	c.page = page
	c.hasMore = len(items) == c.pageSize
	c.state = Ready
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

func (c *Client) notify(s Snapshot) {
	if c.onChange != nil {
		c.onChange(s)
	}
}
