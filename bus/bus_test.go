package bus

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/codecrew-ai/codecrew/internal/metrics"
	"github.com/codecrew-ai/codecrew/types"
)

func echoHandler(name string) Handler {
	return func(msg types.Message) (*types.Message, error) {
		reply := msg.Reply(map[string]any{"echo": name}, "")
		return &reply, nil
	}
}

func TestMessageBus_DirectDelivery(t *testing.T) {
	b := NewMessageBus(zap.NewNop())
	b.Subscribe("developer", echoHandler("developer"))
	b.Subscribe("architect", echoHandler("architect"))

	msg := types.NewMessage("team_lead", "developer", types.MessageRequest, nil)
	deliveries := b.Publish(msg)

	require.Len(t, deliveries, 1)
	assert.Equal(t, "developer", deliveries[0].Receiver)
	require.NotNil(t, deliveries[0].Reply)
	assert.Equal(t, "developer", deliveries[0].Reply.Content["echo"])
	assert.Equal(t, msg.ID, deliveries[0].Reply.CorrelationID)
}

func TestMessageBus_BroadcastExcludesSender(t *testing.T) {
	b := NewMessageBus(zap.NewNop())
	b.Subscribe("product_manager", echoHandler("product_manager"))
	b.Subscribe("developer", echoHandler("developer"))
	b.Subscribe("qa_engineer", echoHandler("qa_engineer"))

	deliveries := b.Publish(types.NewMessage("developer", types.Broadcast, types.MessageNotification, nil))

	require.Len(t, deliveries, 2)
	receivers := []string{deliveries[0].Receiver, deliveries[1].Receiver}
	assert.Equal(t, []string{"product_manager", "qa_engineer"}, receivers,
		"broadcast follows subscription order and skips the sender")
}

func TestMessageBus_UnsubscribedReceiver(t *testing.T) {
	b := NewMessageBus(zap.NewNop())

	msg := types.NewMessage("team_lead", "ghost", types.MessageRequest, nil)
	deliveries := b.Publish(msg)

	assert.Empty(t, deliveries, "no handler is not an error")
	require.Len(t, b.History(""), 1, "history records the message anyway")
	assert.Equal(t, msg.ID, b.History("")[0].ID)
}

func TestMessageBus_ResubscribeReplacesHandler(t *testing.T) {
	b := NewMessageBus(zap.NewNop())
	b.Subscribe("developer", func(types.Message) (*types.Message, error) {
		return nil, errors.New("old handler")
	})
	b.Subscribe("developer", echoHandler("v2"))

	deliveries := b.Publish(types.NewMessage("x", "developer", types.MessageRequest, nil))
	require.Len(t, deliveries, 1)
	require.NoError(t, deliveries[0].Err)
	assert.Equal(t, "v2", deliveries[0].Reply.Content["echo"])
}

func TestMessageBus_HandlerErrorDoesNotAbortFanout(t *testing.T) {
	b := NewMessageBus(zap.NewNop())
	b.Subscribe("broken", func(types.Message) (*types.Message, error) {
		return nil, errors.New("boom")
	})
	b.Subscribe("healthy", echoHandler("healthy"))

	deliveries := b.Publish(types.NewMessage("team_lead", types.Broadcast, types.MessageNotification, nil))

	require.Len(t, deliveries, 2)
	assert.Error(t, deliveries[0].Err)
	assert.NoError(t, deliveries[1].Err)
	assert.NotNil(t, deliveries[1].Reply)
}

func TestMessageBus_HistoryFiltering(t *testing.T) {
	b := NewMessageBus(zap.NewNop())
	b.Subscribe("developer", echoHandler("developer"))

	b.Publish(types.NewMessage("team_lead", "developer", types.MessageRequest, nil))
	b.Publish(types.NewMessage("architect", "qa_engineer", types.MessageNotification, nil))
	b.Publish(types.NewMessage("developer", "team_lead", types.MessageResponse, nil))

	assert.Len(t, b.History(""), 3)
	assert.Len(t, b.History("developer"), 2)
	assert.Len(t, b.History("qa_engineer"), 1)
	assert.Empty(t, b.History("nobody"))

	b.ClearHistory()
	assert.Empty(t, b.History(""))
}

func TestMessageBus_Unsubscribe(t *testing.T) {
	b := NewMessageBus(zap.NewNop())
	b.Subscribe("developer", echoHandler("developer"))
	b.Unsubscribe("developer")

	deliveries := b.Publish(types.NewMessage("x", "developer", types.MessageRequest, nil))
	assert.Empty(t, deliveries)

	// broadcast no longer reaches it either
	deliveries = b.Publish(types.NewMessage("x", types.Broadcast, types.MessageNotification, nil))
	assert.Empty(t, deliveries)
}

func TestMessageBus_PublishRecordsMetrics(t *testing.T) {
	collector := metrics.NewCollector("bus_publish_test", nil)
	b := NewMessageBus(zap.NewNop())
	b.SetCollector(collector)
	b.Subscribe("developer", echoHandler("developer"))

	b.Publish(types.NewMessage("team_lead", "developer", types.MessageRequest, nil))
	b.Publish(types.NewMessage("team_lead", "developer", types.MessageRequest, nil))
	b.Publish(types.NewMessage("architect", types.Broadcast, types.MessageNotification, nil))

	counts := map[string]float64{}
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != "bus_publish_test_messages_published_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "msg_type" {
					counts[l.GetValue()] = m.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, 2.0, counts["request"])
	assert.Equal(t, 1.0, counts["notification"])
}
