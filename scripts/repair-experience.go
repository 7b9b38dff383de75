package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/KirkDiggler/cyber-arena/internal/config"
	"github.com/KirkDiggler/cyber-arena/internal/engine/experience"
	"github.com/KirkDiggler/cyber-arena/internal/entities"
	"github.com/KirkDiggler/cyber-arena/internal/redis"
	progressrepo "github.com/KirkDiggler/cyber-arena/internal/repositories/progress"
)

// Scans stored experience records for unreadable JSON and for derived level
// fields that no longer match the total XP, then offers to repair them.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	client, err := redis.NewClient(cfg.RedisAddr, cfg.RedisOptions())
	if err != nil {
		log.Fatal("Failed to create Redis client:", err)
	}
	ctx := context.Background()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}

	fmt.Println("Connected to Redis:", cfg.RedisAddr)
	fmt.Println("Scanning experience records...")

	pattern := progressrepo.ExperienceKey("*")
	iter := client.Scan(ctx, 0, pattern, 0).Iterator()

	var corrupted []string
	stale := make(map[string]entities.ExperienceRecord)
	var checkedCount int

	for iter.Next(ctx) {
		key := iter.Val()
		checkedCount++

		data, err := client.Get(ctx, key).Result()
		if err != nil {
			fmt.Printf("Error reading %s: %v\n", key, err)
			continue
		}

		var record entities.ExperienceRecord
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			fmt.Printf("✗ Corrupted JSON in %s\n", key)
			corrupted = append(corrupted, key)
			continue
		}
		if record.PlayerID == "" {
			record.PlayerID = strings.TrimPrefix(key, progressrepo.ExperienceKey(""))
		}

		fixed := experience.Recompute(record)
		if fixed.Level != record.Level || fixed.CurrentLevelXP != record.CurrentLevelXP ||
			fixed.XPToNextLevel != record.XPToNextLevel {
			fmt.Printf("✗ Stale level in %s: level %d, %d XP means level %d\n",
				key, record.Level, record.TotalXP, fixed.Level)
			stale[key] = fixed
		}
	}

	if err := iter.Err(); err != nil {
		log.Fatal("Error during scan:", err)
	}

	fmt.Printf("\nChecked %d keys, found %d corrupted and %d stale records\n", checkedCount, len(corrupted), len(stale))

	if len(corrupted) == 0 && len(stale) == 0 {
		fmt.Println("Nothing to repair!")
		return
	}

	fmt.Print("\nDELETE corrupted records and RECOMPUTE stale ones? (yes/no): ")
	var response string
	_, _ = fmt.Scanln(&response)

	if response != "yes" {
		fmt.Println("Aborted - no changes made")
		return
	}

	for _, key := range corrupted {
		if err := client.Del(ctx, key).Err(); err != nil {
			fmt.Printf("Failed to delete %s: %v\n", key, err)
		} else {
			fmt.Printf("Deleted %s\n", key)
		}
	}
	for key, record := range stale {
		data, err := json.Marshal(record)
		if err != nil {
			fmt.Printf("Failed to encode %s: %v\n", key, err)
			continue
		}
		if err := client.Set(ctx, key, data, 0).Err(); err != nil {
			fmt.Printf("Failed to rewrite %s: %v\n", key, err)
		} else {
			fmt.Printf("Rewrote %s at level %d\n", key, record.Level)
		}
	}
	fmt.Println("\nRepair complete!")
}
