package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/ml-career-pulse/backend/pkg/circuitbreaker"
	"github.com/ml-career-pulse/backend/pkg/config"
	"github.com/ml-career-pulse/backend/pkg/logger"
	"github.com/ml-career-pulse/backend/pkg/retry"
)

// Client maintains the skill graph:
// (:Item {id, type, title})-[:MENTIONS {category}]->(:Skill {name}).
type Client struct {
	driver      neo4j.DriverWithContext
	database    string
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

type ItemNode struct {
	ID    string
	Type  string
	Title string
}

// Mention links an item to a canonical skill name under a schema category.
type Mention struct {
	Skill    string
	Category string
}

type SkillCount struct {
	Name  string `json:"name"`
	Items int64  `json:"items"`
}

func NewClient(cfg config.Neo4jConfig) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify connectivity: %w", err)
	}

	cb := circuitbreaker.NewCircuitBreaker("neo4j", circuitbreaker.Config{
		MaxRequests:      3,
		Interval:         time.Minute,
		Timeout:          20 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   200 * time.Millisecond,
		MaxDelay:       3 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	database := cfg.Database
	if database == "" {
		database = "neo4j"
	}

	logger.Info("Neo4j client initialized", zap.String("uri", cfg.URI))

	return &Client{
		driver:      driver,
		database:    database,
		cb:          cb,
		retryConfig: retryConfig,
	}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

func (c *Client) executeWithRetry(ctx context.Context, operation func(neo4j.SessionWithContext) error) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
			defer session.Close(ctx)
			return operation(session)
		})
	})
}

// EnsureConstraints creates the uniqueness constraints the MERGEs rely on.
func (c *Client) EnsureConstraints(ctx context.Context) error {
	statements := []string{
		`CREATE CONSTRAINT item_id IF NOT EXISTS FOR (i:Item) REQUIRE i.id IS UNIQUE`,
		`CREATE CONSTRAINT skill_name IF NOT EXISTS FOR (s:Skill) REQUIRE s.name IS UNIQUE`,
	}

	return c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		for _, stmt := range statements {
			if _, err := session.Run(ctx, stmt, nil); err != nil {
				return fmt.Errorf("failed to create constraint: %w", err)
			}
		}
		return nil
	})
}

// RecordMentions replaces the item's MENTIONS edges with mentions.
func (c *Client) RecordMentions(ctx context.Context, item ItemNode, mentions []Mention) error {
	rows := make([]map[string]any, 0, len(mentions))
	for _, m := range mentions {
		rows = append(rows, map[string]any{
			"skill":    m.Skill,
			"category": m.Category,
		})
	}

	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			if _, err := tx.Run(ctx, `
				MERGE (i:Item {id: $id})
				SET i.type = $type, i.title = $title, i.updated_at = timestamp()
				WITH i
				OPTIONAL MATCH (i)-[old:MENTIONS]->()
				DELETE old
			`, map[string]any{
				"id":    item.ID,
				"type":  item.Type,
				"title": item.Title,
			}); err != nil {
				return nil, err
			}

			if len(rows) == 0 {
				return nil, nil
			}

			_, err := tx.Run(ctx, `
				MATCH (i:Item {id: $id})
				UNWIND $mentions AS m
				MERGE (s:Skill {name: m.skill})
				MERGE (i)-[r:MENTIONS {category: m.category}]->(s)
			`, map[string]any{
				"id":       item.ID,
				"mentions": rows,
			})
			return nil, err
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to record mentions: %w", err)
	}

	logger.Debug("Skill mentions recorded",
		zap.String("item_id", item.ID),
		zap.Int("mentions", len(mentions)),
	)
	return nil
}

// TopSkills ranks skills by the number of distinct items mentioning them.
// An empty itemType covers every type.
func (c *Client) TopSkills(ctx context.Context, itemType string, limit int) ([]SkillCount, error) {
	if limit <= 0 {
		limit = 10
	}

	counts := []SkillCount{}

	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		counts = counts[:0]

		result, err := session.Run(ctx, `
			MATCH (i:Item)-[:MENTIONS]->(s:Skill)
			WHERE $type = '' OR i.type = $type
			RETURN s.name AS name, count(DISTINCT i) AS items
			ORDER BY items DESC, name ASC
			LIMIT $limit
		`, map[string]any{
			"type":  itemType,
			"limit": limit,
		})
		if err != nil {
			return fmt.Errorf("failed to query top skills: %w", err)
		}

		for result.Next(ctx) {
			record := result.Record()
			name, _ := record.Get("name")
			items, _ := record.Get("items")

			sc := SkillCount{}
			sc.Name, _ = name.(string)
			sc.Items, _ = items.(int64)
			counts = append(counts, sc)
		}

		if err := result.Err(); err != nil {
			return fmt.Errorf("error iterating results: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return counts, nil
}
