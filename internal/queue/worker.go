package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/spigell/bursary-matcher/internal/bursary"
	"github.com/spigell/bursary-matcher/internal/logger"
	"github.com/spigell/bursary-matcher/internal/matching"
	"github.com/spigell/bursary-matcher/internal/store"
	"github.com/spigell/bursary-matcher/internal/validation"
)

var ErrInvalidRequest = errors.New("invalid match request")

const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeInvalid = "invalid"

	StatusOK    = "ok"
	StatusError = "error"

	defaultQueueName = "match-requests"
	defaultPrefetch  = 4
	defaultWorkers   = 2
)

type Config struct {
	URL      string        `mapstructure:"url"`
	Name     string        `mapstructure:"name"`
	Prefetch int           `mapstructure:"prefetch"`
	Workers  int           `mapstructure:"workers"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Request is the JSON body of a queued match request. Exactly one of
// StudentID and Student is set.
type Request struct {
	RequestID       string         `json:"request_id"`
	StudentID       string         `json:"student_id,omitempty"`
	Student         map[string]any `json:"student,omitempty"`
	BursaryIDs      []string       `json:"bursary_ids,omitempty"`
	IncludeSemantic bool           `json:"include_semantic"`
	SortBy          string         `json:"sort_by,omitempty"`
}

type Reply struct {
	RequestID        string                 `json:"request_id"`
	Status           string                 `json:"status"`
	Error            string                 `json:"error,omitempty"`
	Results          []matching.MatchResult `json:"results,omitempty"`
	MissingBursaries []string               `json:"missing_bursaries,omitempty"`
	CompletedAt      time.Time              `json:"completed_at"`
}

type Ranker interface {
	Rank(ctx context.Context, student *bursary.StudentProfile, listings []*bursary.Listing, includeSemantic bool) ([]matching.MatchResult, error)
}

// Publisher is the subset of *amqp.Channel used to send replies.
type Publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Recorder interface {
	QueueRequest(outcome string)
}

type Worker struct {
	cfg      Config
	ranker   Ranker
	profiles store.ProfileStore
	listings store.ListingStore
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Worker)

func WithRecorder(r Recorder) Option {
	return func(w *Worker) { w.recorder = r }
}

func WithClock(now func() time.Time) Option {
	return func(w *Worker) {
		if now != nil {
			w.now = now
		}
	}
}

func New(cfg Config, ranker Ranker, profiles store.ProfileStore, listings store.ListingStore, log *zap.Logger, opts ...Option) *Worker {
	if cfg.Name == "" {
		cfg.Name = defaultQueueName
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = defaultPrefetch
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}

	w := &Worker{
		cfg:      cfg,
		ranker:   ranker,
		profiles: profiles,
		listings: listings,
		logger:   logger.WithFields(log, zap.String("queue", cfg.Name)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run consumes match requests until ctx is cancelled or the broker closes the channel.
func (w *Worker) Run(ctx context.Context) error {
	conn, err := amqp.Dial(w.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(w.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}

	if _, err := ch.QueueDeclare(
		w.cfg.Name,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare queue %s: %w", w.cfg.Name, err)
	}

	msgs, err := ch.Consume(w.cfg.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume queue %s: %w", w.cfg.Name, err)
	}

	w.logger.Info("waiting for match requests", zap.Int("workers", w.cfg.Workers), zap.Int("prefetch", w.cfg.Prefetch))

	closed := make(chan struct{}, w.cfg.Workers)
	var wg sync.WaitGroup
	for i := range w.cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log := w.logger.With(zap.Int("worker", i+1))
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-msgs:
					if !ok {
						closed <- struct{}{}
						return
					}
					w.deliver(ctx, log, ch, d)
				}
			}
		}()
	}
	wg.Wait()

	if ctx.Err() != nil {
		return nil
	}
	if len(closed) > 0 {
		return errors.New("delivery channel closed by broker")
	}
	return nil
}

// Deliver handles one delivery: invalid requests are rejected without requeue,
// every valid request is answered on its ReplyTo queue and acknowledged.
func (w *Worker) Deliver(ctx context.Context, pub Publisher, d amqp.Delivery) {
	w.deliver(ctx, w.logger, pub, d)
}

func (w *Worker) deliver(ctx context.Context, log *zap.Logger, pub Publisher, d amqp.Delivery) {
	reply, err := w.Handle(ctx, d.Body)
	if err != nil {
		w.record(OutcomeInvalid)
		log.Warn("rejecting match request", zap.String("message_id", d.MessageId), zap.Error(err))
		if err := d.Reject(false); err != nil {
			log.Error("reject delivery", zap.Error(err))
		}
		return
	}

	if reply.Status == StatusOK {
		w.record(OutcomeOK)
	} else {
		w.record(OutcomeFailed)
	}

	if d.ReplyTo != "" {
		correlationID := d.CorrelationId
		if correlationID == "" {
			correlationID = reply.RequestID
		}

		body, err := json.Marshal(reply)
		if err != nil {
			log.Error("marshal reply", zap.String("request_id", reply.RequestID), zap.Error(err))
			_ = d.Reject(false)
			return
		}

		if err := pub.Publish("", d.ReplyTo, false, false, amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: correlationID,
			MessageId:     uuid.NewString(),
			Timestamp:     reply.CompletedAt,
			Body:          body,
		}); err != nil {
			log.Error("publish reply, requeueing request", zap.String("request_id", reply.RequestID), zap.Error(err))
			_ = d.Nack(false, true)
			return
		}
	}

	if err := d.Ack(false); err != nil {
		log.Error("ack delivery", zap.String("request_id", reply.RequestID), zap.Error(err))
	}
}

// Handle validates and executes one match request. The error is non-nil only
// for malformed requests; failures while serving a valid request are reported
// in the reply.
func (w *Worker) Handle(ctx context.Context, body []byte) (Reply, error) {
	if err := validation.ValidateMatchRequest(body); err != nil {
		return Reply{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return Reply{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	sortKey, err := matching.ParseSortKey(req.SortBy)
	if err != nil {
		return Reply{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	if w.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.Timeout)
		defer cancel()
	}

	log := w.logger.With(zap.String("request_id", req.RequestID))

	reply := Reply{RequestID: req.RequestID, Status: StatusOK}
	if err := w.serve(ctx, req, sortKey, &reply); err != nil {
		log.Warn("match request failed", zap.Error(err))
		reply.Status = StatusError
		reply.Error = err.Error()
		reply.Results = nil
	}
	reply.CompletedAt = w.now().UTC()

	return reply, nil
}

func (w *Worker) serve(ctx context.Context, req Request, sortKey matching.SortKey, reply *Reply) error {
	student, err := w.student(ctx, req)
	if err != nil {
		return err
	}

	all, err := w.listings.Listings(ctx)
	if err != nil {
		return err
	}

	selected := all.Items
	if len(req.BursaryIDs) > 0 {
		selected = make([]*bursary.Listing, 0, len(req.BursaryIDs))
		for _, id := range req.BursaryIDs {
			listing := all.FindByID(id)
			if listing == nil {
				reply.MissingBursaries = append(reply.MissingBursaries, id)
				continue
			}
			selected = append(selected, listing)
		}
	}

	results, err := w.ranker.Rank(ctx, student, selected, req.IncludeSemantic)
	if err != nil {
		return err
	}
	if req.SortBy != "" {
		matching.Sort(results, sortKey)
	}

	reply.Results = results
	return nil
}

func (w *Worker) student(ctx context.Context, req Request) (*bursary.StudentProfile, error) {
	if req.Student != nil {
		return store.DecodeProfile(req.Student)
	}
	return w.profiles.Profile(ctx, req.StudentID)
}

func (w *Worker) record(outcome string) {
	if w.recorder != nil {
		w.recorder.QueueRequest(outcome)
	}
}
