package queue

// The background consumer drains both event queues and appends one audit
// line per event to logs/reservations.log. It runs a reconnect loop for
// the lifetime of the process and never brings the server down: failed
// messages are rejected without requeue and the error is logged.

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const auditLogPath = "logs/reservations.log"

// StartAuditConsumer connects to RabbitMQ, declares both durable event
// queues and consumes them forever, reconnecting with exponential
// backoff after broker failures.
func StartAuditConsumer() {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(brokerURL())
		if err != nil {
			log.Printf("audit-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn); err != nil {
			log.Printf("audit-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("audit-consumer: set QoS failed: %v", err)
	}

	for _, name := range []string{BookedQueueName, PaymentQueueName} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
	}

	booked, err := ch.Consume(BookedQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", BookedQueueName, err)
	}
	payments, err := ch.Consume(PaymentQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", PaymentQueueName, err)
	}

	for {
		select {
		case d, ok := <-booked:
			if !ok {
				return errors.New("booked deliveries channel closed")
			}
			ackOrReject(d, handleBooked(d.Body))
		case d, ok := <-payments:
			if !ok {
				return errors.New("payment deliveries channel closed")
			}
			ackOrReject(d, handlePayment(d.Body))
		}
	}
}

func ackOrReject(d amqp.Delivery, err error) {
	if err != nil {
		log.Printf("audit-consumer: handle message failed: %v", err)
		_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
		return
	}
	_ = d.Ack(false)
}

func handleBooked(body []byte) error {
	var ev ReservationBookedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	second := "-"
	if ev.Flight2ID != nil {
		second = fmt.Sprintf("%d", *ev.Flight2ID)
	}
	line := fmt.Sprintf("[%s] Reservation booked | rid=%d | user=%s | flight1=%d | flight2=%s | day=%d | total=%d\n",
		ev.BookedAt, ev.ReservationID, ev.Username, ev.Flight1ID, second, ev.DayOfMonth, ev.TotalPrice)
	return appendAuditLine(line)
}

func handlePayment(body []byte) error {
	var ev PaymentCapturedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line := fmt.Sprintf("[%s] Payment captured | rid=%d | user=%s | amount=%d | balance=%d\n",
		ev.PaidAt, ev.ReservationID, ev.Username, ev.AmountPaid, ev.NewBalance)
	return appendAuditLine(line)
}

func appendAuditLine(line string) error {
	if err := os.MkdirAll(filepath.Dir(auditLogPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(auditLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
