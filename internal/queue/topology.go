package queue

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange = "dinein.events"
	EventsQueue    = "dinein.settlement"
	EventsDLX      = "dinein.events.dead"
	EventsDLQ      = "dinein.settlement.dlq"
	EventsDeadRK   = "dead"

	// '#' matches multi-segment keys such as order.status.updated.
	EventsBinding = "order.#"

	TableJobsExchange = "dinein.table_jobs"
	TableJobsQueue    = "dinein.table_jobs.release"
	TableJobsDLQ      = "dinein.table_jobs.dlq"
	TableJobsRK       = "release"
	TableJobsDeadRK   = "dead"
)

type declarer interface {
	EnsureExchange(name string) error
	EnsureExchangeKind(name string, kind string) error
	EnsureQueue(name string) (amqp.Queue, error)
	EnsureQueueWithArgs(name string, args amqp.Table) (amqp.Queue, error)
	BindQueue(queueName, exchange, routingKey string) error
}

// EnsureEventsTopology declares the settlement events exchange, the queue
// the translator consumes and the dead letter queue that catches the
// deliveries it rejects.
func EnsureEventsTopology(qc *Client) error {
	if qc == nil {
		return nil
	}
	return ensureEventsTopology(qc)
}

func ensureEventsTopology(d declarer) error {
	if err := d.EnsureExchange(EventsExchange); err != nil {
		return err
	}

	if err := d.EnsureExchangeKind(EventsDLX, "direct"); err != nil {
		return err
	}
	if _, err := d.EnsureQueue(EventsDLQ); err != nil {
		return err
	}
	if err := d.BindQueue(EventsDLQ, EventsDLX, EventsDeadRK); err != nil {
		return err
	}

	_, err := d.EnsureQueueWithArgs(EventsQueue, amqp.Table{
		"x-dead-letter-exchange":    EventsDLX,
		"x-dead-letter-routing-key": EventsDeadRK,
	})
	if err != nil {
		return err
	}
	return d.BindQueue(EventsQueue, EventsExchange, EventsBinding)
}

// EnsureTableJobsTopology declares the direct exchange for table jobs and a
// dead letter queue for jobs the table component keeps rejecting.
func EnsureTableJobsTopology(qc *Client) error {
	if qc == nil {
		return nil
	}
	return ensureTableJobsTopology(qc)
}

func ensureTableJobsTopology(d declarer) error {
	if err := d.EnsureExchangeKind(TableJobsExchange, "direct"); err != nil {
		return err
	}

	if _, err := d.EnsureQueue(TableJobsDLQ); err != nil {
		return err
	}
	if err := d.BindQueue(TableJobsDLQ, TableJobsExchange, TableJobsDeadRK); err != nil {
		return err
	}

	_, err := d.EnsureQueueWithArgs(TableJobsQueue, amqp.Table{
		"x-dead-letter-exchange":    TableJobsExchange,
		"x-dead-letter-routing-key": TableJobsDeadRK,
	})
	if err != nil {
		return err
	}
	return d.BindQueue(TableJobsQueue, TableJobsExchange, TableJobsRK)
}
