package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/finplan/backend/internal/ledger/domain"
	"github.com/finplan/backend/internal/platform/metrics"
)

var tracer = otel.Tracer("github.com/finplan/backend/internal/ledger/service")

// track 为一次服务调用开启 span，并在结束时记录指标
//
//	ctx, done := track(ctx, "create_transaction", ownerID)
//	defer func() { done(err) }()
func track(ctx context.Context, operation string, ownerID int64) (context.Context, func(error)) {
	ctx, span := tracer.Start(ctx, "ledger."+operation,
		trace.WithAttributes(attribute.Int64("owner.id", ownerID)),
	)
	return ctx, func(err error) {
		defer span.End()

		status := "ok"
		if err != nil {
			status = "error"
			if reason := domain.ReasonOf(err); reason != "" {
				status = "rejected"
				metrics.Rejections.WithLabelValues(string(reason)).Inc()
				span.SetAttributes(attribute.String("rejection.reason", string(reason)))
			} else {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
		}
		metrics.LedgerOperations.WithLabelValues(operation, status).Inc()
	}
}
