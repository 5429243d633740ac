package graph

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// transactor is the slice of *Client the projector needs.
type transactor interface {
	ExecuteWrite(ctx context.Context, work func(tx neo4j.ManagedTransaction) (any, error)) (any, error)
	ExecuteRead(ctx context.Context, work func(tx neo4j.ManagedTransaction) (any, error)) (any, error)
}

const projectMatchesCypher = `
UNWIND $rows AS row
MERGE (o:Order {id: row.order_id})
SET o.group_id = row.group_id, o.risk_level = row.order_risk, o.checked_at = row.checked_at
MERGE (b:BlacklistEntry {id: row.blacklist_id})
MERGE (o)-[m:MATCHED]->(b)
SET m.match_type = row.match_type, m.score = row.score, m.risk = row.risk, m.detail = row.detail
`

// Stale edges from a previous pass are removed before the new ones are merged.
const clearMatchesCypher = `
UNWIND $order_ids AS order_id
MATCH (:Order {id: order_id})-[m:MATCHED]->()
DELETE m
`

const entryOrdersCypher = `
MATCH (o:Order)-[m:MATCHED]->(:BlacklistEntry {id: $blacklist_id})
RETURN o.id AS order_id, m.match_type AS match_type, m.score AS score, m.risk AS risk
ORDER BY m.score DESC
LIMIT $limit
`

// MatchEdge is one MATCHED relationship read back from the graph.
type MatchEdge struct {
	OrderID   int64   `json:"order_id"`
	MatchType string  `json:"match_type"`
	Score     float64 `json:"score"`
	Risk      string  `json:"risk"`
}

// Projector writes detection outcomes as (Order)-[:MATCHED]->(BlacklistEntry) edges.
type Projector struct {
	client transactor
	logger ectologger.Logger
}

// NewProjector creates a projector over a connected client
func NewProjector(client *Client, logger ectologger.Logger) *Projector {
	return &Projector{client: client, logger: logger}
}

// ProjectMatches replaces the MATCHED edges of every given order.
func (p *Projector) ProjectMatches(ctx context.Context, groupID *int64, outcomes []models.DetectionOutcome) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.ProjectMatches")
	defer span.End()

	if len(outcomes) == 0 {
		return nil
	}

	orderIDs := make([]int64, 0, len(outcomes))
	for _, outcome := range outcomes {
		orderIDs = append(orderIDs, outcome.OrderID)
	}
	rows := MatchRows(groupID, outcomes)

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"orders": len(orderIDs),
		"edges":  len(rows),
	})

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, clearMatchesCypher, map[string]any{"order_ids": orderIDs}); err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, nil
		}
		_, err := tx.Run(ctx, projectMatchesCypher, map[string]any{"rows": rows})
		return nil, err
	})
	if err != nil {
		log.WithError(err).Error("Failed to project matches")
		return fmt.Errorf("failed to project matches: %w", err)
	}

	log.Debug("Projected matches")
	return nil
}

// OrdersForEntry lists the orders matched against one blacklist entry, best score first.
func (p *Projector) OrdersForEntry(ctx context.Context, blacklistID int64, limit int) ([]MatchEdge, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.OrdersForEntry")
	defer span.End()

	if limit <= 0 {
		limit = 100
	}

	res, err := p.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, entryOrdersCypher, map[string]any{
			"blacklist_id": blacklistID,
			"limit":        limit,
		})
		if err != nil {
			return nil, err
		}

		edges := make([]MatchEdge, 0)
		for result.Next(ctx) {
			edges = append(edges, edgeFromRecord(result.Record()))
		}
		return edges, result.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read matches for blacklist entry %d: %w", blacklistID, err)
	}

	return res.([]MatchEdge), nil
}

func edgeFromRecord(record *neo4j.Record) MatchEdge {
	var edge MatchEdge
	if v, ok := record.Get("order_id"); ok {
		edge.OrderID, _ = v.(int64)
	}
	if v, ok := record.Get("match_type"); ok {
		edge.MatchType, _ = v.(string)
	}
	if v, ok := record.Get("score"); ok {
		edge.Score, _ = v.(float64)
	}
	if v, ok := record.Get("risk"); ok {
		edge.Risk, _ = v.(string)
	}
	return edge
}

// MatchRows flattens outcomes into UNWIND parameter rows, one per positive match.
func MatchRows(groupID *int64, outcomes []models.DetectionOutcome) []map[string]any {
	var group any
	if groupID != nil {
		group = *groupID
	}

	rows := make([]map[string]any, 0)
	for _, outcome := range outcomes {
		if !outcome.IsBlacklisted {
			continue
		}
		for _, match := range outcome.Matches {
			if !match.IsMatch {
				continue
			}
			rows = append(rows, map[string]any{
				"order_id":     outcome.OrderID,
				"group_id":     group,
				"order_risk":   string(outcome.RiskLevel),
				"checked_at":   outcome.CheckedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
				"blacklist_id": match.BlacklistID,
				"match_type":   string(match.MatchType),
				"score":        match.Score,
				"risk":         string(match.Risk),
				"detail":       match.Detail,
			})
		}
	}
	return rows
}
