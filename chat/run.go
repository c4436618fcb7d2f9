package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the state of a Run in its submission lifecycle.
type RunStatus int

const (
	StatusUnsubmitted RunStatus = iota // no attempt made yet
	StatusPending                      // payload adapted, retry loop not started
	StatusSubmitted                    // an attempt is in flight
	StatusQueued                       // reserved; unused by the synchronous driver
	StatusCompleted                    // response obtained and folded into the conversation
	StatusError                        // last attempt failed, retries remain
	StatusFailed                       // fatal error or all attempts exhausted
)

var runStatusNames = [...]string{
	StatusUnsubmitted: "unsubmitted",
	StatusPending:     "pending",
	StatusSubmitted:   "submitted",
	StatusQueued:      "queued",
	StatusCompleted:   "completed",
	StatusError:       "error",
	StatusFailed:      "failed",
}

func (s RunStatus) String() string {
	if int(s) < len(runStatusNames) {
		return runStatusNames[s]
	}
	return fmt.Sprintf("unknown(%d)", s)
}

const (
	defaultMaxAttempts = 3
	defaultTimeout     = 60 * time.Second
	defaultRetryDelay  = 3 * time.Second
)

type runConfig struct {
	maxAttempts int
	timeout     time.Duration
	retryDelay  time.Duration
	logger      *slog.Logger
	callOptions Options
}

func defaultRunConfig() runConfig {
	return runConfig{
		maxAttempts: defaultMaxAttempts,
		timeout:     defaultTimeout,
		retryDelay:  defaultRetryDelay,
		logger:      slog.Default(),
	}
}

// RunOption configures a single Run.
type RunOption func(*runConfig)

// WithMaxAttempts sets how many submissions are permitted before the run
// fails.
func WithMaxAttempts(n int) RunOption {
	return func(c *runConfig) { c.maxAttempts = n }
}

// WithTimeout sets the advisory per-attempt timeout handed to the adapter.
func WithTimeout(d time.Duration) RunOption {
	return func(c *runConfig) { c.timeout = d }
}

// WithRetryDelay sets the fixed delay between attempts.
func WithRetryDelay(d time.Duration) RunOption {
	return func(c *runConfig) { c.retryDelay = d }
}

// WithLogger sets the logger used by the run driver.
func WithLogger(l *slog.Logger) RunOption {
	return func(c *runConfig) { c.logger = l }
}

// WithCallOption passes an adapter-specific knob through to every attempt.
func WithCallOption(name string, value any) RunOption {
	return func(c *runConfig) {
		if c.callOptions == nil {
			c.callOptions = Options{}
		}
		c.callOptions[name] = value
	}
}

// WithCallOptions merges adapter-specific knobs into every attempt.
func WithCallOptions(opts Options) RunOption {
	return func(c *runConfig) {
		if c.callOptions == nil {
			c.callOptions = Options{}
		}
		for k, v := range opts {
			c.callOptions[k] = v
		}
	}
}

// Run tracks one attempt-cycle of submitting a Conversation's pending prompt
// through an Adapter. The run driver maintains the fields; callers inspect
// them after Conversation.Run returns, starting with Status.
type Run struct {
	ID             string
	CreationTime   time.Time
	SubmissionTime time.Time // start of the most recent attempt
	CompletionTime time.Time
	Duration       time.Duration
	Attempts       int
	MaxAttempts    int
	Timeout        time.Duration
	Status         RunStatus

	// Conversation is a non-owning back-reference to the conversation this
	// run submitted.
	Conversation *Conversation

	// Snapshot is a deep copy of the conversation taken at the moment of
	// success, before the new exchange was appended. It is kept for audit
	// and debugging.
	Snapshot *Conversation

	// Payload is the adapter-produced submission payload, opaque to the core.
	Payload any

	// RawResponse is the adapter's raw provider response, opaque to the core.
	RawResponse any

	// Response is the adapted assistant message, set on completion.
	Response *Message

	// Errors holds every attempt's error in order, recoverable and fatal.
	Errors []error

	adapter Adapter
}

func newRun(conv *Conversation, adapter Adapter, cfg runConfig) *Run {
	return &Run{
		ID:           uuid.NewString(),
		CreationTime: time.Now(),
		MaxAttempts:  cfg.maxAttempts,
		Timeout:      cfg.timeout,
		Status:       StatusUnsubmitted,
		Conversation: conv,
		adapter:      adapter,
	}
}

// drive executes the retry loop: one synchronous attempt at a time, a fixed
// delay between attempts. Context-length overflows are fatal and returned;
// any other failure is retried until the attempt budget is spent, which
// ends the run as failed without an error.
func (r *Run) drive(ctx context.Context, cfg runConfig) (*Run, error) {
	conv := r.Conversation
	callOpts := CallOptions{Timeout: cfg.timeout, Options: cfg.callOptions}

	for r.Attempts < r.MaxAttempts {
		r.SubmissionTime = time.Now()
		r.Attempts++
		r.Status = StatusSubmitted
		cfg.logger.Debug("submitting conversation",
			"run_id", r.ID, "attempt", r.Attempts, "max_attempts", r.MaxAttempts)

		raw, err := r.adapter.Call(ctx, conv, callOpts)
		if err != nil {
			r.Errors = append(r.Errors, err)
			if IsKind(err, ErrContextLength) {
				// Retrying the same oversized payload cannot succeed.
				r.Status = StatusFailed
				cfg.logger.Error("context limit exceeded", "run_id", r.ID, "error", err)
				return r, err
			}
			r.Status = StatusError
			cfg.logger.Error("llm callback failed",
				"run_id", r.ID, "attempt", r.Attempts, "error", err)
			if r.Attempts >= r.MaxAttempts {
				r.Status = StatusFailed
				return r, nil
			}
			time.Sleep(cfg.retryDelay)
			continue
		}

		// Snapshot the conversation before it gains the new exchange.
		r.Snapshot = conv.Clone()
		r.RawResponse = raw

		response, err := r.adapter.ToMessage(raw)
		if err != nil {
			r.Errors = append(r.Errors, err)
			r.Status = StatusFailed
			cfg.logger.Error("adapting response failed", "run_id", r.ID, "error", err)
			return r, err
		}
		r.Response = response

		exchange, err := NewExchange(conv.nextPrompt, response)
		if err != nil {
			r.Errors = append(r.Errors, err)
			r.Status = StatusFailed
			cfg.logger.Error("completing exchange failed", "run_id", r.ID, "error", err)
			return r, err
		}
		conv.exchanges = append(conv.exchanges, exchange)
		conv.nextPrompt = nil

		r.Status = StatusCompleted
		r.CompletionTime = time.Now()
		r.Duration = r.CompletionTime.Sub(r.CreationTime)
		cfg.logger.Debug("run completed",
			"run_id", r.ID, "attempts", r.Attempts, "duration", r.Duration)
		return r, nil
	}

	// Zero or negative attempt budget: nothing was ever submitted.
	r.Status = StatusFailed
	return r, nil
}

func (r *Run) String() string {
	return fmt.Sprintf("Run %s status: %s.", r.ID, r.Status)
}
