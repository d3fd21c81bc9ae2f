//go:build integration

package transport_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"penmatch/internal/match/classify"
	"penmatch/internal/match/compare"
	"penmatch/internal/match/handler"
	"penmatch/internal/match/models"
	"penmatch/internal/match/normalize"
	"penmatch/internal/match/score"
	"penmatch/internal/match/service"
	"penmatch/internal/match/transport"
	"penmatch/internal/platform/kafka"
	"penmatch/internal/registry"
	"penmatch/pkg/testutil/containers"
)

type KafkaTransportSuite struct {
	suite.Suite
	brokers []string
	logger  *slog.Logger
}

func TestKafkaTransportSuite(t *testing.T) {
	suite.Run(t, new(KafkaTransportSuite))
}

func (s *KafkaTransportSuite) SetupSuite() {
	s.brokers = containers.GetManager().GetRedpanda(s.T()).Brokers
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *KafkaTransportSuite) matchService() *service.Service {
	normalizer := normalize.New(nil)
	provider := registry.NewMemoryProvider(normalizer)
	provider.Add(models.CandidateRecord{PEN: "123456782", Surname: "SMITH", GivenName: "JOHN", DateOfBirth: "2005-01-01", Gender: "M"})

	combiner, err := score.New(score.DefaultWeights())
	s.Require().NoError(err)
	classifier, err := classify.New(classify.DefaultThresholds())
	s.Require().NoError(err)
	svc, err := service.New(normalizer, provider, compare.New(), combiner, classifier, service.WithLogger(s.logger))
	s.Require().NoError(err)
	return svc
}

func (s *KafkaTransportSuite) TestRequestToResult() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	const requests, results = "it-pen-match-requests", "it-pen-match-results"

	producer, err := kafka.NewProducer(s.brokers)
	s.Require().NoError(err)
	defer producer.Close()
	s.Require().NoError(kafka.EnsureTopics(ctx, producer.Client(), 1, -1, requests, results))
	// creating an existing topic is not an error
	s.Require().NoError(kafka.EnsureTopics(ctx, producer.Client(), 1, -1, requests))

	processor, err := transport.NewProcessor(s.matchService(), transport.WithLogger(s.logger))
	s.Require().NoError(err)
	h, err := transport.NewKafkaHandler(processor, producer, results, s.logger)
	s.Require().NoError(err)

	router := kafka.NewRouter(s.logger, nil)
	router.Register(requests, h)
	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: s.brokers,
		GroupID: "it-penmatch",
		Topics:  router.Topics(),
		Workers: 2,
	}, router, []kafka.ConsumerOption{kafka.WithConsumerLogger(s.logger)},
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()))
	s.Require().NoError(err)

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- consumer.Run(runCtx) }()

	body := `{"correlation_id":"it-corr-1","surname":"Smith","given_name":"John","date_of_birth":"2005-01-01","gender":"M"}`
	s.Require().NoError(producer.Publish(ctx, requests, []byte("it-corr-1"), []byte(body), nil))

	reader, err := kgo.NewClient(
		kgo.SeedBrokers(s.brokers...),
		kgo.ConsumeTopics(results),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer reader.Close()

	var got *kgo.Record
	for got == nil && ctx.Err() == nil {
		fetches := reader.PollFetches(ctx)
		fetches.EachRecord(func(r *kgo.Record) {
			if string(r.Key) == "it-corr-1" {
				got = r
			}
		})
	}
	s.Require().NotNil(got)

	var resp handler.MatchResponse
	s.Require().NoError(json.Unmarshal(got.Value, &resp))
	s.Equal("123456782", resp.MatchedPEN)
	s.Equal(models.StatusC1, resp.Status)

	stop()
	s.NoError(<-done)
}
