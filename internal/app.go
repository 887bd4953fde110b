package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/alvaroaleman/sensorconfig/internal/collector"
	"github.com/alvaroaleman/sensorconfig/internal/config"
	"github.com/alvaroaleman/sensorconfig/internal/sensor"
	"github.com/alvaroaleman/sensorconfig/internal/transports"
	"github.com/alvaroaleman/sensorconfig/internal/transports/httptransport"
	"github.com/alvaroaleman/sensorconfig/internal/transports/mqtttransport"
)

type Opts struct {
	ConfigFile string
	Flags      *pflag.FlagSet
	Stdout     io.Writer
}

// Run submits one sensor config and writes the response to Stdout. Any
// answer from the remote side, whatever its status, is a success.
func Run(opts Opts, log *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(opts.ConfigFile, opts.Flags)
	if err != nil {
		return err
	}
	if opts.ConfigFile != "" {
		log.Info("Loaded configuration from file", zap.String("file", opts.ConfigFile))
	}

	body, err := sensor.ResolveBody(cfg.Body, cfg.BodyFile)
	if err != nil {
		return fmt.Errorf("failed to resolve payload: %w", err)
	}

	candidates := []transports.Transport{
		httptransport.New(log, http.MethodPut, cfg.Timeout),
		mqtttransport.New(log, mqtttransport.Opts{
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			QoS:      cfg.MQTT.QoS,
			Timeout:  cfg.Timeout,
		}),
	}
	return send(ctx, log, opts, cfg, cfg.Endpoint, body, candidates)
}

// RunStatus fetches the gateway's current sensor status once.
func RunStatus(opts Opts, log *zap.Logger) error {
	return runGet(opts, log, func(cfg config.Config) string { return cfg.StatusEndpoint })
}

// RunList fetches the gateway's sensor list once.
func RunList(opts Opts, log *zap.Logger) error {
	return runGet(opts, log, func(cfg config.Config) string { return cfg.ListEndpoint })
}

// runGet issues a single GET. An explicit --endpoint wins over the
// configured default for the subcommand.
func runGet(opts Opts, log *zap.Logger, defaultEndpoint func(config.Config) string) error {
	ctx, cancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(opts.ConfigFile, opts.Flags)
	if err != nil {
		return err
	}

	endpoint := defaultEndpoint(cfg)
	if opts.Flags != nil && opts.Flags.Changed("endpoint") {
		endpoint = cfg.Endpoint
	}

	candidates := []transports.Transport{
		httptransport.New(log, http.MethodGet, cfg.Timeout),
	}
	return send(ctx, log, opts, cfg, endpoint, nil, candidates)
}

func send(ctx context.Context, log *zap.Logger, opts Opts, cfg config.Config, rawEndpoint string, body []byte, candidates []transports.Transport) error {
	endpoint, err := transports.ParseEndpoint(rawEndpoint)
	if err != nil {
		return err
	}
	transport, err := transports.Select(endpoint, candidates...)
	if err != nil {
		return err
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	collector := collector.New()
	registry := prometheus.NewRegistry()
	if err := registry.Register(collector); err != nil {
		return fmt.Errorf("failed to register collector: %w", err)
	}

	start := time.Now()
	resp, submitErr := transport.Submit(ctx, endpoint, body)
	collector.ObserveSubmission(transport.Name(), outcome(resp, submitErr), time.Since(start).Seconds(), float64(start.Unix()))

	if cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(cfg.MetricsFile, registry); err != nil {
			log.Error("Failed to write metrics file", zap.String("file", cfg.MetricsFile), zap.Error(err))
		}
	}

	if submitErr != nil {
		var transportErr *transports.TransportError
		if errors.As(submitErr, &transportErr) {
			log.Error("Transport failure", zap.String("transport", transport.Name()), zap.Error(submitErr))
		}
		return submitErr
	}

	log.Info("Request completed",
		zap.String("transport", transport.Name()),
		zap.String("target", resp.Target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	return writeResponse(stdout, resp, cfg.Include)
}

func outcome(resp *transports.Response, err error) string {
	switch {
	case err != nil:
		return collector.OutcomeTransportError
	case resp.StatusCode == 0:
		return collector.OutcomePublished
	default:
		return strconv.Itoa(resp.StatusCode)
	}
}

func writeResponse(w io.Writer, resp *transports.Response, include bool) error {
	if include {
		if resp.StatusCode != 0 {
			if _, err := fmt.Fprintf(w, "%s %s\r\n", resp.Proto, resp.Status); err != nil {
				return fmt.Errorf("failed to write response: %w", err)
			}
			if err := resp.Header.Write(w); err != nil {
				return fmt.Errorf("failed to write response headers: %w", err)
			}
			if _, err := io.WriteString(w, "\r\n"); err != nil {
				return fmt.Errorf("failed to write response: %w", err)
			}
		} else if _, err := fmt.Fprintf(w, "published to %s\n", resp.Target); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
	}
	if _, err := w.Write(resp.Body); err != nil {
		return fmt.Errorf("failed to write response body: %w", err)
	}
	return nil
}
