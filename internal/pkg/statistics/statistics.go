package statistics

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/RuanOosthuizen/StagePass/app/models"
	"github.com/RuanOosthuizen/StagePass/internal/pkg/cache"
	"github.com/RuanOosthuizen/StagePass/internal/pkg/database"
)

const (
	CacheKeyPaymentsTotal     = "statistics:payments:total"
	CacheKeyPaymentsDaily     = "statistics:payments:daily:%s" // Format with date YYYY-MM-DD
	CacheKeyPaymentsCompleted = "statistics:payments:completed"
	CacheKeyEntriesPaid       = "statistics:entries:paid"
	CacheExpiration           = 30 * time.Minute
)

// StatisticsData holds the aggregate numbers shown on the internal dashboard.
type StatisticsData struct {
	TodayPayments     int `json:"today_payments"`
	TotalPayments     int `json:"total_payments"`
	CompletedPayments int `json:"completed_payments"`
	PaidEntries       int `json:"paid_entries"`
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache reports whether the cached aggregates are stale.
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded refreshes the cache when the update interval elapsed.
func UpdateCacheIfNeeded() {
	if ShouldUpdateCache() {
		cacheUpdateMutex.Lock()
		defer cacheUpdateMutex.Unlock()

		if err := UpdateStatisticsCache(); err != nil {
			log.Printf("Error updating statistics cache: %v", err)
		} else {
			lastCacheUpdate = time.Now()
		}
	}
}

// ResetCacheUpdateTimer forces a refresh on the next read.
func ResetCacheUpdateTimer() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	lastCacheUpdate = time.Time{}
}

// UpdateStatisticsCache recomputes all aggregates and stores them in the cache.
func UpdateStatisticsCache() error {
	db := database.GetDB()

	var totalPayments int64
	if err := db.Model(&models.Payment{}).Count(&totalPayments).Error; err != nil {
		log.Printf("Error counting total payments: %v", err)
		return err
	}

	var todayPayments int64
	today := time.Now().Format("2006-01-02")
	todayStart, _ := time.Parse("2006-01-02", today)
	todayEnd := todayStart.Add(24 * time.Hour)

	if err := db.Model(&models.Payment{}).Where("created_at BETWEEN ? AND ?", todayStart, todayEnd).Count(&todayPayments).Error; err != nil {
		log.Printf("Error counting today's payments: %v", err)
		return err
	}

	var completedPayments int64
	if err := db.Model(&models.Payment{}).Where("status = ?", models.PaymentStatusCompleted).Count(&completedPayments).Error; err != nil {
		log.Printf("Error counting completed payments: %v", err)
		return err
	}

	var paidEntries int64
	if err := db.Model(&models.EventEntry{}).Where("payment_status = ?", models.EntryPaymentPaid).Count(&paidEntries).Error; err != nil {
		log.Printf("Error counting paid entries: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyPaymentsTotal, strconv.FormatInt(totalPayments, 10), CacheExpiration); err != nil {
		log.Printf("Error caching total payments: %v", err)
		return err
	}

	dailyKey := fmt.Sprintf(CacheKeyPaymentsDaily, today)
	if err := cache.Set(dailyKey, strconv.FormatInt(todayPayments, 10), CacheExpiration); err != nil {
		log.Printf("Error caching today's payments: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyPaymentsCompleted, strconv.FormatInt(completedPayments, 10), CacheExpiration); err != nil {
		log.Printf("Error caching completed payments: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyEntriesPaid, strconv.FormatInt(paidEntries, 10), CacheExpiration); err != nil {
		log.Printf("Error caching paid entries: %v", err)
		return err
	}

	return nil
}

// GetTotalPayments returns the total number of payment sessions from cache or database.
func GetTotalPayments() int {
	return cachedCount(CacheKeyPaymentsTotal, func(db *gorm.DB) (int64, error) {
		var count int64
		err := db.Model(&models.Payment{}).Count(&count).Error
		return count, err
	})
}

// GetTodayPayments returns the number of payments initiated today from cache or database.
func GetTodayPayments() int {
	today := time.Now().Format("2006-01-02")
	dailyKey := fmt.Sprintf(CacheKeyPaymentsDaily, today)

	return cachedCount(dailyKey, func(db *gorm.DB) (int64, error) {
		todayStart, _ := time.Parse("2006-01-02", today)
		todayEnd := todayStart.Add(24 * time.Hour)

		var count int64
		err := db.Model(&models.Payment{}).Where("created_at BETWEEN ? AND ?", todayStart, todayEnd).Count(&count).Error
		return count, err
	})
}

// GetCompletedPayments returns the number of completed payments from cache or database.
func GetCompletedPayments() int {
	return cachedCount(CacheKeyPaymentsCompleted, func(db *gorm.DB) (int64, error) {
		var count int64
		err := db.Model(&models.Payment{}).Where("status = ?", models.PaymentStatusCompleted).Count(&count).Error
		return count, err
	})
}

// GetPaidEntries returns the number of paid entries from cache or database.
func GetPaidEntries() int {
	return cachedCount(CacheKeyEntriesPaid, func(db *gorm.DB) (int64, error) {
		var count int64
		err := db.Model(&models.EventEntry{}).Where("payment_status = ?", models.EntryPaymentPaid).Count(&count).Error
		return count, err
	})
}

// cachedCount reads a counter from the cache, falling back to the database and
// repopulating the cache on a miss.
func cachedCount(key string, fetch func(*gorm.DB) (int64, error)) int {
	val, err := cache.Get(key)
	if err == nil {
		count, perr := strconv.ParseInt(val, 10, 64)
		if perr != nil {
			return 0
		}
		return int(count)
	}

	count, err := fetch(database.GetDB())
	if err != nil {
		log.Printf("Error counting for %s: %v", key, err)
		return 0
	}

	if err := cache.Set(key, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
		log.Printf("Error caching %s: %v", key, err)
	}

	return int(count)
}

// GetStatisticsData returns all aggregates, refreshing the cache when needed.
func GetStatisticsData() StatisticsData {
	UpdateCacheIfNeeded()

	return StatisticsData{
		TodayPayments:     GetTodayPayments(),
		TotalPayments:     GetTotalPayments(),
		CompletedPayments: GetCompletedPayments(),
		PaidEntries:       GetPaidEntries(),
	}
}
