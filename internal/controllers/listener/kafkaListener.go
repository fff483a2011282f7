package listener

import (
	"encoding/json"
	"time"

	"payments/internal/application/entity"
	"payments/internal/application/projection"
	"payments/pkg/metrics"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// CDCListener consumes CDC envelopes from a topic and feeds the projector.
// An offset is only marked after the projection write succeeds, so a crash
// mid-projection redelivers the envelope and the projector re-applies it.
type CDCListener struct {
	projector *projection.Projector
	logger    *zap.SugaredLogger
	m         *metrics.Metrics
}

func NewCDCListener(projector *projection.Projector, logger *zap.SugaredLogger, m *metrics.Metrics) *CDCListener {
	return &CDCListener{
		projector: projector,
		logger:    logger,
		m:         m,
	}
}

func (k *CDCListener) Setup(session sarama.ConsumerGroupSession) error {
	k.logger.Info("CDC consumer setup success")
	if k.m != nil {
		k.m.Kafka.ConsumerRebalancesTotal.WithLabelValues("setup").Inc()
	}
	return nil
}

func (k *CDCListener) Cleanup(session sarama.ConsumerGroupSession) error {
	k.logger.Info("CDC consumer cleanup success")
	if k.m != nil {
		k.m.Kafka.ConsumerRebalancesTotal.WithLabelValues("cleanup").Inc()
	}
	return nil
}

func (k *CDCListener) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	topic := claim.Topic()

	for msg := range claim.Messages() {
		if k.m != nil {
			k.m.Kafka.ConsumerInFlight.WithLabelValues(topic).Inc()
		}
		start := time.Now()
		k.logger.Debugf("message topic:%q partition:%d offset:%d key:%s", msg.Topic, msg.Partition, msg.Offset, msg.Key)

		var env entity.CDCEnvelope
		if err := json.Unmarshal(msg.Value, &env); err != nil {
			// a malformed message never becomes valid on redelivery, skip it
			k.logger.Errorf("malformed CDC envelope at %s/%d/%d: %v", msg.Topic, msg.Partition, msg.Offset, err)
			if k.m != nil {
				k.m.Projection.AppliedTotal.WithLabelValues(topic, "malformed").Inc()
				k.m.Kafka.ConsumerInFlight.WithLabelValues(topic).Dec()
			}
			session.MarkMessage(msg, "")
			continue
		}

		err := k.projector.Apply(session.Context(), env)
		if k.m != nil {
			res := "ok"
			if err != nil {
				res = "error"
			}
			k.m.Projection.AppliedTotal.WithLabelValues(topic, res).Inc()
			k.m.Kafka.ConsumerMessagesTotal.WithLabelValues(topic).Inc()
			k.m.Kafka.ConsumerProcessDuration.WithLabelValues(topic).Observe(time.Since(start).Seconds())
			k.m.Kafka.ConsumerInFlight.WithLabelValues(topic).Dec()
		}
		if err != nil {
			// leave the offset unmarked: the envelope is redelivered and the
			// projection is retried, only this iteration fails
			k.logger.Errorf("projection failed for event %s at %s/%d/%d: %v", env.EventID, msg.Topic, msg.Partition, msg.Offset, err)
			continue
		}

		session.MarkMessage(msg, "")
	}

	return nil
}
