package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/lorekeeper/pkg/queue"
)

func main() {
	// Connect to Redis
	redisOpts, err := redis.ParseURL("redis://localhost:6379")
	if err != nil {
		log.Fatal("Failed to parse Redis URL:", err)
	}
	client := redis.NewClient(redisOpts)
	defer client.Close()

	ctx := context.Background()

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}

	fmt.Println("Connected to Redis successfully!")

	saveStateID := uuid.MustParse("00000000-0000-0000-0000-000000000001")

	// Create a test scene turn request
	turnReq := &queue.Request{
		RequestID:   uuid.New().String(),
		Type:        queue.RequestTypeSceneTurn,
		SaveStateID: saveStateID,
		ChoiceID:    "advance_cautiously",
		EnqueuedAt:  time.Now(),
	}

	data, err := json.Marshal(turnReq)
	if err != nil {
		log.Fatal("Failed to marshal request:", err)
	}

	if err := client.RPush(ctx, "requests", data).Err(); err != nil {
		log.Fatal("Failed to enqueue request:", err)
	}

	fmt.Printf("Enqueued scene turn request: %s\n", turnReq.RequestID)

	// Create a test narrative save request
	saveReq := &queue.Request{
		RequestID:    uuid.New().String(),
		Type:         queue.RequestTypeNarrativeSave,
		SaveStateID:  saveStateID,
		NarrativeLog: "The party crossed the fork and met a mysterious figure in the shadows.",
		EnqueuedAt:   time.Now(),
	}

	data, err = json.Marshal(saveReq)
	if err != nil {
		log.Fatal("Failed to marshal request:", err)
	}

	if err := client.RPush(ctx, "requests", data).Err(); err != nil {
		log.Fatal("Failed to enqueue request:", err)
	}

	fmt.Printf("Enqueued narrative save request: %s\n", saveReq.RequestID)

	// Check queue depth
	depth, err := client.LLen(ctx, "requests").Result()
	if err != nil {
		log.Fatal("Failed to get queue depth:", err)
	}

	fmt.Printf("\nQueue depth: %d requests\n", depth)
	fmt.Println("\nNow start the worker to see it process these requests!")
	fmt.Println("   Run: go run cmd/worker/main.go")
}
