// Package ingest runs the Kafka signal intake loop: it reads raw signal
// messages off the intake topic and feeds them through the processing
// pipeline.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/thejenniferfang/disaster-response/internal/mq"
	"github.com/thejenniferfang/disaster-response/internal/pipeline"
	"github.com/thejenniferfang/disaster-response/internal/types"
)

// Options configures the Consumer.
type Options struct {
	Brokers []string
	Topic   string
	GroupID string
	// MaxPerSecond bounds the processing rate. Intake blocks rather than
	// drops when the bound is hit: a well-formed signal is never discarded.
	MaxPerSecond int
}

// Consumer is the Kafka signal intake loop.
type Consumer struct {
	logger   *zap.Logger
	reader   *kafka.Reader
	pipeline *pipeline.Pipeline
	limiter  *rate.Limiter
}

// NewConsumer creates a Consumer reading from opts.Topic.
func NewConsumer(p *pipeline.Pipeline, logger *zap.Logger, opts Options) *Consumer {
	var limiter *rate.Limiter
	if opts.MaxPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.MaxPerSecond), opts.MaxPerSecond)
	}
	return &Consumer{
		logger:   logger.Named("ingest"),
		reader:   mq.NewReader(opts.Brokers, opts.Topic, opts.GroupID),
		pipeline: p,
		limiter:  limiter,
	}
}

// Run consumes until the context is cancelled, then closes the reader.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	c.logger.Info("Signal intake started",
		zap.String("topic", c.reader.Config().Topic),
		zap.String("group", c.reader.Config().GroupID),
	)

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				c.logger.Info("Signal intake stopped")
				return nil
			}
			return fmt.Errorf("read signal message: %w", err)
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil
			}
		}

		signal, err := mq.ParseMessageJSON[types.Signal](msg)
		if err != nil {
			signalsConsumed.WithLabelValues("malformed").Inc()
			c.logger.Warn("Dropping malformed signal message",
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			continue
		}

		if _, err := c.pipeline.ProcessSignal(ctx, signal); err != nil {
			if types.IsValidation(err) {
				signalsConsumed.WithLabelValues("invalid").Inc()
				c.logger.Warn("Rejected invalid signal",
					zap.String("signal", signal.ID),
					zap.Error(err),
				)
				continue
			}
			signalsConsumed.WithLabelValues("error").Inc()
			c.logger.Error("Signal processing failed",
				zap.String("signal", signal.ID),
				zap.Error(err),
			)
			continue
		}
		signalsConsumed.WithLabelValues("ok").Inc()
	}
}
