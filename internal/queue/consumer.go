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

// StartTicketConsumer connects to RabbitMQ, declares the ticket queues
// (durable), and starts consuming messages. Each message is appended to
// logs/tickets.log in a single-line, human-friendly format. The function
// runs a reconnect loop; it keeps running and logs any processing errors
// while rejecting the offending message so the server continues operating.
func StartTicketConsumer() error {
	url := brokerURL()

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("ticket-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn); err != nil {
			log.Printf("ticket-consumer: consume loop ended: %v; reconnecting", err)
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
		log.Printf("ticket-consumer: set QoS failed: %v", err)
	}

	for _, q := range []string{PurchasedQueue, CancelledQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
	}

	purchased, err := ch.Consume(PurchasedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume %s: %w", PurchasedQueue, err)
	}
	cancelled, err := ch.Consume(CancelledQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume %s: %w", CancelledQueue, err)
	}

	for {
		select {
		case d, ok := <-purchased:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			handleDelivery(d, handlePurchased)
		case d, ok := <-cancelled:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			handleDelivery(d, handleCancelled)
		}
	}
}

func handleDelivery(d amqp.Delivery, handle func([]byte) error) {
	if err := handle(d.Body); err != nil {
		log.Printf("ticket-consumer: handle message failed: %v", err)
		_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
		return
	}
	_ = d.Ack(false)
}

func handlePurchased(body []byte) error {
	var ev TicketPurchasedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line := fmt.Sprintf("[%s] Ticket purchased | ticket_id=%d | user_id=%d | trip_id=%d | %s -> %s | %s %s | seat=%d | paid=%d cents | discount=%d cents\n",
		ev.PurchasedAt, ev.TicketID, ev.UserID, ev.TripID, ev.FromCity, ev.ToCity,
		ev.DepartDate, ev.DepartTime, ev.SeatNumber, ev.PaidCents, ev.DiscountCents)
	return appendLog(line)
}

func handleCancelled(body []byte) error {
	var ev TicketCancelledEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line := fmt.Sprintf("[%s] Ticket cancelled | ticket_id=%d | user_id=%d | trip_id=%d | refunded=%d cents\n",
		ev.CancelledAt, ev.TicketID, ev.UserID, ev.TripID, ev.RefundedCents)
	return appendLog(line)
}

func appendLog(line string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "tickets.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
