package queue

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

// StartConfirmationConsumer connects to RabbitMQ, declares the
// meal.confirmed queue (durable), and starts consuming messages.  Each
// event is appended to logs/confirmation.log in a single-line,
// human-friendly format, giving operations an audit trail that survives
// independently of the database.  The function runs a reconnect loop
// with exponential backoff and keeps running across broker restarts;
// malformed messages are rejected without requeue so a poison message
// cannot wedge the consumer.
func StartConfirmationConsumer() error {
	url := brokerURL()

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("confirmation-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn); err != nil {
			log.Printf("confirmation-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
			continue
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
		log.Printf("confirmation-consumer: set QoS failed: %v", err)
	}

	_, err = ch.QueueDeclare(mealConfirmedQueue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(mealConfirmedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(d.Body); err != nil {
			log.Printf("confirmation-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(body []byte) error {
	var ev MealConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "confirmation.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	by := ""
	if ev.ConfirmedBy != 0 {
		by = fmt.Sprintf(" | confirmed_by=%d", ev.ConfirmedBy)
	}
	line := fmt.Sprintf("[%s] Meal confirmed | order_id=%s | user_id=%d | user=%q | department=%q | date=%s | meal=%s | channel=%s%s\n",
		ev.ConfirmedAt, ev.OrderID, ev.UserID, ev.UserName, ev.DepartmentName, ev.DiningDate, ev.MealType, ev.Channel, by)

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
