// Package grpcapi поднимает служебный gRPC-сервер: health и reflection.
package grpcapi

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

const (
	// Имя в health-протоколе; пустое имя означает весь сервер.
	ServiceName = "clinic.scheduling.v1"

	requestIDKey = "x-request-id"
)

// Pinger проверяет доступность БД; *sql.DB подходит.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// NewServer создаёт gRPC-сервер с health и reflection. Статус изначально NOT_SERVING.
func NewServer(log zerolog.Logger) (*grpc.Server, *health.Server) {
	log = log.With().Str("component", "grpc").Logger()

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			recoveryInterceptor(log),
			loggingInterceptor(log),
		),
	)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return srv, hs
}

// WatchDatabase пингует БД каждые interval и переключает статус health.
// Возвращается при отмене ctx, оставляя NOT_SERVING.
func WatchDatabase(ctx context.Context, hs *health.Server, db Pinger, interval time.Duration, log zerolog.Logger) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	check := func() {
		pingCtx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()

		st := healthpb.HealthCheckResponse_SERVING
		if err := db.PingContext(pingCtx); err != nil {
			log.Warn().Err(err).Msg("database ping failed")
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
		hs.SetServingStatus("", st)
		hs.SetServingStatus(ServiceName, st)
	}

	check()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
			check()
		}
	}
}

func loggingInterceptor(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()

		id := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get(requestIDKey); len(vals) > 0 {
				id = vals[0]
			}
		}
		if id == "" {
			id = uuid.NewString()
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDKey, id))

		resp, err := handler(ctx, req)

		log.Debug().
			Str("request_id", id).
			Str("method", info.FullMethod).
			Str("code", status.Code(err).String()).
			Dur("latency", time.Since(start)).
			Msg("rpc")
		return resp, err
	}
}

func recoveryInterceptor(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Str("method", info.FullMethod).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(debug.Stack())).
					Msg("panic recovered")
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}
