package main

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"time"

	"github.com/matchadev/matcha-engine/internal/app"
	"github.com/matchadev/matcha-engine/internal/cache"
	"github.com/matchadev/matcha-engine/internal/config"
	"github.com/matchadev/matcha-engine/internal/db"
	"github.com/matchadev/matcha-engine/internal/engine"
	apperrors "github.com/matchadev/matcha-engine/internal/errors"
	"github.com/matchadev/matcha-engine/internal/logger"
	"github.com/matchadev/matcha-engine/internal/service/messages"
)

// Seeds demo users directly, then drives likes, visits and messages
// through the engine so matches, conversations and notifications come out
// of the real code paths.
func main() {
	cfg := config.New()
	logger.InitFromConfig(cfg)

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	if err := db.SeedDemoUsers(database); err != nil {
		log.Fatalf("seeding users failed: %v", err)
	}

	redisCache := cache.NewRedisCache(cfg)
	ctx := context.Background()
	if err := redisCache.Ping(ctx); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}

	eng := engine.New(app.New(database, redisCache, logger.L()))
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// ~70% like probability across opposite-gender pairs, every 3rd pair
	// reciprocated so demo matches exist.
	counter := 0
	for liker := uint64(1); liker <= 10; liker++ {
		for n := 0; n < 6; n++ {
			target := uint64(11 + r.Intn(10))
			if r.Intn(100) >= 70 {
				continue
			}
			if _, _, err := eng.Likes.RecordLike(ctx, liker, target); err != nil {
				log.Fatalf("seeding like failed: %v", err)
			}
			if counter%3 == 0 {
				if _, _, err := eng.Likes.RecordLike(ctx, target, liker); err != nil {
					log.Fatalf("seeding reciprocal like failed: %v", err)
				}
			}
			counter++
		}
	}

	// a few visits, every 4th hidden
	for i := 0; i < 30; i++ {
		visitor := uint64(1 + r.Intn(20))
		visited := uint64(1 + r.Intn(20))
		if visitor == visited {
			continue
		}
		if _, err := eng.Visits.RecordVisit(ctx, visitor, visited, i%4 == 0); err != nil {
			log.Fatalf("seeding visit failed: %v", err)
		}
	}

	// open every matched conversation with a greeting
	for user := uint64(1); user <= 20; user++ {
		matches_, err := eng.Matches.ListForUser(ctx, user)
		if err != nil {
			log.Fatalf("listing matches failed: %v", err)
		}
		for _, m := range matches_ {
			if m.User1ID != user {
				continue // greet once per pair
			}
			conv, err := eng.Conversations.EnsureConversation(ctx, m.User1ID, m.User2ID)
			if err != nil {
				log.Fatalf("ensuring conversation failed: %v", err)
			}
			_, err = eng.Messages.Append(ctx, messages.AppendInput{
				ConversationID: conv.ID,
				SenderID:       user,
				ContentType:    messages.ContentTypeText,
				Content:        "hey, we matched!",
			})
			if err != nil && !errors.Is(err, apperrors.ErrConversationInactive) {
				log.Fatalf("seeding message failed: %v", err)
			}
		}
	}

	log.Println("Demo data seeded.")
}
