package tool

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// OrderNoGenerator issues merchant order numbers. Snowflake ids embed the
// millisecond timestamp, so numbers sort by creation time and stay unique
// across instances as long as each instance runs with its own node id.
type OrderNoGenerator struct {
	node *snowflake.Node
}

func NewOrderNoGenerator(nodeID int64) (*OrderNoGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("init snowflake node %d: %w", nodeID, err)
	}
	return &OrderNoGenerator{node: node}, nil
}

// Next returns a numeric string well below the gateway's 30 character limit.
func (g *OrderNoGenerator) Next() string {
	return g.node.Generate().String()
}
