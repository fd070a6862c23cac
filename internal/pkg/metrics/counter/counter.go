package counter

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/RuanOosthuizen/StagePass/internal/pkg/cache"
	"github.com/RuanOosthuizen/StagePass/internal/pkg/database"
)

const webhookDeliveriesKey = "payments:counters:webhooks"

// AddWebhookDelivery increments the pending delivery counter for a payment in
// Redis. Deliveries include provider retries, so the count can exceed one even
// for a payment that only ever transitioned once.
func AddWebhookDelivery(paymentID string) error {
	client := cache.GetClient()
	if client == nil {
		return nil
	}
	ctx := context.Background()
	return client.HIncrBy(ctx, webhookDeliveriesKey, paymentID, 1).Err()
}

// FlushAll flushes buffered delivery counters to the database.
func FlushAll() error {
	return flushHashToPayments(webhookDeliveriesKey, "webhook_count")
}

// flushHashToPayments drains a Redis hash atomically and applies batched
// increments to the payments table. Uses RENAME to a temporary key for atomic
// drain without losing in-flight increments.
func flushHashToPayments(redisKey, column string) error {
	rdb := cache.GetClient()
	if rdb == nil {
		return nil
	}
	ctx := context.Background()

	// Atomically move the hash to a temp key for draining
	tmpKey := fmt.Sprintf("%s:tmp:%d", redisKey, time.Now().UnixNano())
	if err := rdb.Do(ctx, "RENAME", redisKey, tmpKey).Err(); err != nil {
		// If key does not exist, nothing to flush
		if strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return nil
		}
		if err.Error() == "redis: nil" {
			return nil
		}
		return err
	}

	// Ensure cleanup of tmpKey even if later steps fail
	defer rdb.Del(ctx, tmpKey)

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}

	sql, args := buildFlushUpdate(column, data)
	if sql == "" {
		return nil
	}

	db := database.GetDB()
	if db == nil {
		return nil
	}
	return db.Exec(sql, args...).Error
}

// buildFlushUpdate turns a drained counter hash into one batched UPDATE:
// UPDATE payments SET <col> = <col> + CASE payment_id WHEN ? THEN ? ... END
// WHERE payment_id IN ( ... ). Malformed or zero increments are skipped;
// an empty SQL string means there is nothing to apply.
func buildFlushUpdate(column string, data map[string]string) (string, []interface{}) {
	type pair struct {
		paymentID string
		inc       int64
	}
	pairs := make([]pair, 0, len(data))
	for k, v := range data {
		if k == "" {
			continue
		}
		inc, ierr := strconv.ParseInt(v, 10, 64)
		if ierr != nil || inc == 0 {
			continue
		}
		pairs = append(pairs, pair{paymentID: k, inc: inc})
	}
	if len(pairs) == 0 {
		return "", nil
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].paymentID < pairs[j].paymentID })

	var builder strings.Builder
	args := make([]interface{}, 0, len(pairs)*3)
	builder.WriteString("UPDATE payments SET ")
	builder.WriteString(column)
	builder.WriteString(" = ")
	builder.WriteString(column)
	builder.WriteString(" + CASE payment_id ")
	for _, p := range pairs {
		builder.WriteString(" WHEN ? THEN ?")
		args = append(args, p.paymentID, p.inc)
	}
	builder.WriteString(" END WHERE payment_id IN (")
	for i, p := range pairs {
		if i > 0 {
			builder.WriteString(",")
		}
		builder.WriteString("?")
		args = append(args, p.paymentID)
	}
	builder.WriteString(")")

	return builder.String(), args
}
