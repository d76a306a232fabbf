// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package monitor

import (
	"context"
	"io"
	"os"

	"github.com/fixedpool/fixedpool/cfg"
	"github.com/fixedpool/fixedpool/common"
	"github.com/fixedpool/fixedpool/internal/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func initPropagators() {
	props := propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
	otel.SetTextMapPropagator(props)
}

// SetupTracing bootstraps the OpenTelemetry tracing pipeline. It returns nil
// when tracing is disabled.
func SetupTracing(ctx context.Context, c *cfg.Config) common.ShutdownFn {
	tp, err := newTraceProvider(ctx, c, os.Stdout)
	if err != nil {
		logger.Errorf("error occurred while setting up tracing: %v", err)
		return nil
	}
	if tp == nil {
		return nil
	}
	otel.SetTracerProvider(tp)
	initPropagators()
	return tp.Shutdown
}

func newTraceProvider(ctx context.Context, c *cfg.Config, w io.Writer) (*sdktrace.TracerProvider, error) {
	switch c.Monitoring.TracingMode {
	case cfg.TracingModeStdout:
		return newStdoutTraceProvider(ctx, w, c.Monitoring.TracingSamplingRatio)
	default:
		return nil, nil
	}
}

func newStdoutTraceProvider(ctx context.Context, w io.Writer, samplingRatio float64) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(w),
		stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	res, err := getResource(ctx)
	if err != nil {
		return nil, err
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(samplingRatio))),
	), nil
}
