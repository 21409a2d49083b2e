package queue

import (
	"errors"
	"fmt"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDeclarer struct {
	calls     []string
	queueArgs map[string]amqp.Table
	failOn    string
}

func (r *recordingDeclarer) record(call string) error {
	r.calls = append(r.calls, call)
	if call == r.failOn {
		return errors.New("channel closed")
	}
	return nil
}

func (r *recordingDeclarer) EnsureExchange(name string) error {
	return r.record("exchange " + name)
}

func (r *recordingDeclarer) EnsureExchangeKind(name string, kind string) error {
	return r.record(fmt.Sprintf("exchange %s %s", name, kind))
}

func (r *recordingDeclarer) EnsureQueue(name string) (amqp.Queue, error) {
	return amqp.Queue{Name: name}, r.record("queue " + name)
}

func (r *recordingDeclarer) EnsureQueueWithArgs(name string, args amqp.Table) (amqp.Queue, error) {
	if r.queueArgs == nil {
		r.queueArgs = map[string]amqp.Table{}
	}
	r.queueArgs[name] = args
	return amqp.Queue{Name: name}, r.record("queue " + name)
}

func (r *recordingDeclarer) BindQueue(queueName, exchange, routingKey string) error {
	return r.record(fmt.Sprintf("bind %s %s %s", queueName, exchange, routingKey))
}

func TestEventsTopologyDeadLettersRejectedDeliveries(t *testing.T) {
	d := &recordingDeclarer{}
	require.NoError(t, ensureEventsTopology(d))

	assert.Equal(t, []string{
		"exchange dinein.events",
		"exchange dinein.events.dead direct",
		"queue dinein.settlement.dlq",
		"bind dinein.settlement.dlq dinein.events.dead dead",
		"queue dinein.settlement",
		"bind dinein.settlement dinein.events order.#",
	}, d.calls)

	args, ok := d.queueArgs[EventsQueue]
	require.True(t, ok, "events queue must be declared with arguments")
	assert.Equal(t, EventsDLX, args["x-dead-letter-exchange"])
	assert.Equal(t, EventsDeadRK, args["x-dead-letter-routing-key"])
}

func TestTableJobsTopology(t *testing.T) {
	d := &recordingDeclarer{}
	require.NoError(t, ensureTableJobsTopology(d))

	assert.Equal(t, []string{
		"exchange dinein.table_jobs direct",
		"queue dinein.table_jobs.dlq",
		"bind dinein.table_jobs.dlq dinein.table_jobs dead",
		"queue dinein.table_jobs.release",
		"bind dinein.table_jobs.release dinein.table_jobs release",
	}, d.calls)
	assert.Equal(t, TableJobsExchange, d.queueArgs[TableJobsQueue]["x-dead-letter-exchange"])
}

func TestTopologyStopsOnFirstError(t *testing.T) {
	d := &recordingDeclarer{failOn: "queue dinein.settlement.dlq"}
	err := ensureEventsTopology(d)
	require.Error(t, err)
	assert.Len(t, d.calls, 3)
	assert.NotContains(t, d.queueArgs, EventsQueue)
}

func TestTopologyNilClient(t *testing.T) {
	assert.NoError(t, EnsureEventsTopology(nil))
	assert.NoError(t, EnsureTableJobsTopology(nil))
}
