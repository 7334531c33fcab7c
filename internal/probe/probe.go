// Package probe runs readiness checks and publishes them over HTTP and the
// standard gRPC health protocol.
package probe

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/JasonKing5/ifs/internal/obs"
)

// ServiceName is the gRPC health service name reported alongside "".
const ServiceName = "ifs.api"

// Check reports an error when a dependency is not usable.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// PingDB checks a database/sql pool.
func PingDB(name string, db *sql.DB) Check {
	return Check{Name: name, Fn: func(ctx context.Context) error {
		if db == nil {
			return nil
		}
		return db.PingContext(ctx)
	}}
}

// Probe aggregates checks.
type Probe struct {
	checks  []Check
	timeout time.Duration
	health  *health.Server
}

func New(checks ...Check) *Probe {
	p := &Probe{
		checks:  checks,
		timeout: 2 * time.Second,
		health:  health.NewServer(),
	}
	p.setServing(false)
	return p
}

// Check runs every check and updates the gRPC health status and the ready gauge.
func (p *Probe) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	for _, c := range p.checks {
		if err := c.Fn(ctx); err != nil {
			p.setServing(false)
			return fmt.Errorf("%s: %w", c.Name, err)
		}
	}
	p.setServing(true)
	return nil
}

// Register exposes grpc.health.v1.Health on s.
func (p *Probe) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, p.health)
}

// Health returns the underlying health server.
func (p *Probe) Health() healthpb.HealthServer {
	return p.health
}

// Watch re-evaluates readiness every interval until ctx is done.
func (p *Probe) Watch(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if err := p.Check(ctx); err != nil {
			obs.Logger().WithFields(logrus.Fields{"error": err.Error()}).Warn("readiness check failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// Shutdown marks every service NOT_SERVING so clients drain.
func (p *Probe) Shutdown() {
	p.health.Shutdown()
	obs.SetReady(false)
}

func (p *Probe) setServing(ok bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		status = healthpb.HealthCheckResponse_SERVING
	}
	p.health.SetServingStatus("", status)
	p.health.SetServingStatus(ServiceName, status)
	obs.SetReady(ok)
}
