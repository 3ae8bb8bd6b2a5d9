package services

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"inventory-dashboard/internal/apperror"
	"inventory-dashboard/internal/logger"

	"github.com/sirupsen/logrus"
)

// Outcome описывает исход одного разрешения данных
type Outcome string

const (
	OutcomeRemote   Outcome = "remote"
	OutcomeFallback Outcome = "fallback"
	OutcomeError    Outcome = "error"
)

// FallbackReason объясняет, почему использован локальный расчёт
type FallbackReason string

const (
	ReasonNone                FallbackReason = ""
	ReasonConfigurationAbsent FallbackReason = "configuration_absent"
	ReasonRemoteFailure       FallbackReason = "remote_failure"
)

// Source описывает происхождение данных в конверте
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
	SourceNone   Source = "none"
)

// RemoteFunc запрашивает данные у удалённого провайдера
type RemoteFunc[T any] func(ctx context.Context) (T, error)

// LocalFunc детерминированно считает данные локально
type LocalFunc[T any] func() (T, error)

// Resolution хранит явный результат разрешения (remote, fallback или error)
type Resolution[T any] struct {
	Outcome   Outcome
	Value     T
	Reason    FallbackReason
	RemoteErr error
	Err       error
}

// Resolve пробует удалённый провайдер (если он включён) и откатывается на локальный расчёт.
// Ошибка провайдера не всплывает наружу, ошибка локального расчёта даёт OutcomeError.
// Паника в любой из функций превращается в ошибку.
func Resolve[T any](ctx context.Context, remote RemoteFunc[T], enabled bool, local LocalFunc[T]) Resolution[T] {
	var res Resolution[T]

	if enabled && remote != nil {
		value, err := callRemote(ctx, remote)
		if err == nil {
			res.Outcome = OutcomeRemote
			res.Value = value
			return res
		}
		res.RemoteErr = err
		res.Reason = ReasonRemoteFailure
		if apperror.Is(err, apperror.KindUnavailable) {
			res.Reason = ReasonConfigurationAbsent
		}
	} else {
		res.Reason = ReasonConfigurationAbsent
	}

	value, err := callLocal(local)
	if err != nil {
		res.Outcome = OutcomeError
		res.Err = err
		return res
	}
	res.Outcome = OutcomeFallback
	res.Value = value
	return res
}

func callRemote[T any](ctx context.Context, remote RemoteFunc[T]) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperror.Remote(fmt.Sprintf("remote provider panicked: %v", r), nil)
		}
	}()
	return remote(ctx)
}

func callLocal[T any](local LocalFunc[T]) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperror.Computation(fmt.Sprintf("local computation panicked: %v", r), nil)
		}
	}()
	if local == nil {
		return value, apperror.Computation("no local computation configured", nil)
	}
	value, err = local()
	if err != nil && !apperror.Is(err, apperror.KindComputation) {
		err = apperror.Computation("local computation failed", err)
	}
	return value, err
}

// Envelope строит терминальный конверт цикла cycle
func (r Resolution[T]) Envelope(cycle uint64) HybridResult[T] {
	env := HybridResult[T]{Cycle: cycle, UpdatedAt: time.Now().UTC()}
	switch r.Outcome {
	case OutcomeRemote:
		value := r.Value
		env.Data, env.IsFromAPI, env.Source = &value, true, SourceRemote
	case OutcomeFallback:
		value := r.Value
		env.Data, env.Source = &value, SourceLocal
	default:
		msg := "unknown resolution outcome"
		if r.Err != nil {
			msg = r.Err.Error()
		}
		env.Error, env.Source = &msg, SourceNone
	}
	return env
}

// HybridResult представляет конверт, который видит потребитель. Заменяется целиком на каждом переходе.
type HybridResult[T any] struct {
	Data      *T        `json:"data"`
	IsLoading bool      `json:"isLoading"`
	Error     *string   `json:"error"`
	IsFromAPI bool      `json:"isFromApi"`
	Source    Source    `json:"source"`
	Cycle     uint64    `json:"cycle"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Terminal сообщает, завершён ли цикл
func (r HybridResult[T]) Terminal() bool {
	return !r.IsLoading && r.Cycle > 0
}

// Err возвращает текст ошибки или пустую строку
func (r HybridResult[T]) Err() string {
	if r.Error == nil {
		return ""
	}
	return *r.Error
}

// MapResult переносит конверт на другой тип данных, сохраняя состояние
func MapResult[T, U any](r HybridResult[T], fn func(T) U) HybridResult[U] {
	out := HybridResult[U]{
		IsLoading: r.IsLoading,
		Error:     r.Error,
		IsFromAPI: r.IsFromAPI,
		Source:    r.Source,
		Cycle:     r.Cycle,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Data != nil {
		mapped := fn(*r.Data)
		out.Data = &mapped
	}
	return out
}

// ResolutionObserver получает исход каждого завершённого цикла
type ResolutionObserver interface {
	ObserveResolution(resource, outcome string)
}

// ControllerOptions задаёт источник данных контроллера
type ControllerOptions[T any] struct {
	// имя ресурса для логов и метрик
	Resource    string
	Remote      RemoteFunc[T]
	Enabled     func() bool
	Local       LocalFunc[T]
	Placeholder func() *T
	// Timeout ограничивает удалённый вызов одного цикла
	Timeout  time.Duration
	Log      *logger.Logger
	Observer ResolutionObserver
	// OnResolved вызывается для терминального конверта, если цикл не был вытеснен
	OnResolved func(ctx context.Context, env HybridResult[T])
}

// Controller владеет конвертом одного логического запроса.
// Каждый цикл получает номер поколения: результат вытесненного цикла отбрасывается.
type Controller[T any] struct {
	opts ControllerOptions[T]

	mu          sync.Mutex
	state       HybridResult[T]
	generation  uint64
	subscribers map[int]chan HybridResult[T]
	nextSub     int
}

// NewController создаёт контроллер в состоянии Idle
func NewController[T any](opts ControllerOptions[T]) *Controller[T] {
	if opts.Enabled == nil {
		opts.Enabled = func() bool { return false }
	}
	if opts.Log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		opts.Log = &logger.Logger{Logger: discard}
	}
	return &Controller[T]{
		opts:        opts,
		state:       HybridResult[T]{Source: SourceNone},
		subscribers: make(map[int]chan HybridResult[T]),
	}
}

// Current возвращает текущий конверт
func (c *Controller[T]) Current() HybridResult[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe возвращает канал переходов и функцию отписки.
// Отправка неблокирующая: медленный подписчик пропускает переходы.
func (c *Controller[T]) Subscribe(buffer int) (<-chan HybridResult[T], func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan HybridResult[T], buffer)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			c.mu.Unlock()
			close(ch)
		})
	}
}

// Refresh запускает новый цикл в фоне и возвращает его поколение
func (c *Controller[T]) Refresh(ctx context.Context) uint64 {
	gen := c.begin()
	go c.run(ctx, gen)
	return gen
}

// Fetch выполняет цикл синхронно и возвращает его терминальный конверт.
// Если за это время стартовал новый цикл, результат не публикуется.
func (c *Controller[T]) Fetch(ctx context.Context) HybridResult[T] {
	gen := c.begin()
	return c.run(ctx, gen)
}

// Run обновляет данные сразу и затем по таймеру, пока не отменён ctx
func (c *Controller[T]) Run(ctx context.Context, interval time.Duration) {
	c.Refresh(ctx)
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Refresh(ctx)
		}
	}
}

func (c *Controller[T]) begin() uint64 {
	var placeholder *T
	if c.opts.Placeholder != nil {
		placeholder = c.opts.Placeholder()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.publishLocked(HybridResult[T]{
		Data:      placeholder,
		IsLoading: true,
		Source:    SourceNone,
		Cycle:     c.generation,
		UpdatedAt: time.Now().UTC(),
	})
	return c.generation
}

func (c *Controller[T]) run(ctx context.Context, gen uint64) HybridResult[T] {
	remoteCtx := ctx
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		remoteCtx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	res := Resolve(remoteCtx, c.opts.Remote, c.opts.Enabled(), c.opts.Local)
	logResolution(c.entry().WithField("cycle", gen), res)
	if c.opts.Observer != nil {
		c.opts.Observer.ObserveResolution(c.opts.Resource, string(res.Outcome))
	}

	env := res.Envelope(gen)

	c.mu.Lock()
	current := gen == c.generation
	if current {
		c.publishLocked(env)
	}
	c.mu.Unlock()

	if !current {
		c.entry().WithField("cycle", gen).Debug("Discarding superseded result")
		return env
	}
	if c.opts.OnResolved != nil {
		c.opts.OnResolved(ctx, env)
	}
	return env
}

func (c *Controller[T]) publishLocked(env HybridResult[T]) {
	c.state = env
	for _, ch := range c.subscribers {
		select {
		case ch <- env:
		default:
		}
	}
}

func logResolution[T any](entry *logrus.Entry, res Resolution[T]) {
	switch {
	case res.Outcome == OutcomeError:
		entry.WithError(res.Err).Error("Local computation failed")
	case res.Reason == ReasonRemoteFailure:
		entry.WithError(res.RemoteErr).Warn("Inventory API failed, using local data")
	case res.Reason == ReasonConfigurationAbsent:
		entry.Debug("Inventory API not configured, using local data")
	default:
		entry.Debug("Resolved from inventory API")
	}
}

func (c *Controller[T]) entry() *logrus.Entry {
	return c.opts.Log.WithComponent("hybrid").WithField("resource", c.opts.Resource)
}
