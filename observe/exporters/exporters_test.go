package exporters

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestNewTracingExporter(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantNil bool
		wantErr error
	}{
		{name: "stdout", opts: Options{Writer: &bytes.Buffer{}}},
		{name: "none", wantNil: true},
		{name: "", wantNil: true},
		{name: "otlp", wantErr: ErrEndpointNotConfigured},
		{name: "otlp", opts: Options{Endpoint: "localhost:4317", Insecure: true}},
		{name: "otlp", opts: Options{Endpoint: "http://collector:4317"}},
		{name: "jaeger", wantErr: ErrUnknownExporter},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.opts.Endpoint, func(t *testing.T) {
			exp, err := NewTracingExporter(context.Background(), tt.name, tt.opts)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewTracingExporter() error = %v", err)
			}
			if (exp == nil) != tt.wantNil {
				t.Errorf("exporter nil = %v, want %v", exp == nil, tt.wantNil)
			}
			if exp != nil {
				_ = exp.Shutdown(context.Background())
			}
		})
	}
}

func TestNewMetricsReader(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantNil bool
		wantErr error
	}{
		{name: "stdout", opts: Options{Writer: &bytes.Buffer{}}},
		{name: "none", wantNil: true},
		{name: "otlp", wantErr: ErrEndpointNotConfigured},
		{name: "otlp", opts: Options{Endpoint: "localhost:4317", Insecure: true}},
		{name: "statsd", wantErr: ErrUnknownExporter},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.opts.Endpoint, func(t *testing.T) {
			r, err := NewMetricsReader(context.Background(), tt.name, tt.opts)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewMetricsReader() error = %v", err)
			}
			if (r == nil) != tt.wantNil {
				t.Errorf("reader nil = %v, want %v", r == nil, tt.wantNil)
			}
			if r != nil {
				_ = r.Shutdown(context.Background())
			}
		})
	}
}
