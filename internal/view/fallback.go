package view

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/campusmarket/campusmarket/internal/model"
)

const (
	otelScope       = "campusmarket/view"
	metricFallbacks = "campusmarket.fallbacks"
)

var fallbackCounter = sync.OnceValue(func() metric.Int64Counter {
	c, err := otel.Meter(otelScope).Int64Counter(metricFallbacks,
		metric.WithDescription("Number of reads served from cache after a failed refresh"))
	if err != nil {
		return noop.Int64Counter{}
	}
	return c
})

// RefreshThenFallback is the read policy shared by every screen:
//
//  1. emit Loading;
//  2. call refresh;
//  3. on success emit Success with the remote result;
//  4. on failure read the cache once: rows → Success with the cached rows,
//     no rows → Error with the refresh failure's message.
//
// A refresh discarded as superseded emits nothing further; a newer request
// owns the screen. A failing cache read counts as no rows.
func RefreshThenFallback[E, V any](
	ctx context.Context,
	refresh func(context.Context) ([]E, error),
	cached func(context.Context) ([]E, error),
	mapFn func([]E) []V,
	emit func(State[[]V]),
) {
	emit(Loading[[]V]())

	fresh, err := refresh(ctx)
	if err == nil {
		emit(Success(mapFn(fresh)))
		return
	}
	if model.IsKind(err, model.KindSuperseded) {
		return
	}

	rows, cacheErr := cached(ctx)
	if cacheErr == nil && len(rows) > 0 {
		fallbackCounter().Add(ctx, 1)
		emit(Success(mapFn(rows)))
		return
	}
	emit(Failure[[]V](err.Error()))
}
