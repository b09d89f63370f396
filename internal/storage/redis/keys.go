package redis

import (
	"fmt"

	"github.com/mcoot/playersync/internal/model"
)

// Key prefix for all player data
const keyPrefix = "playersync"

// blobKey returns the Redis key for a player's blob
func blobKey(playerID model.PlayerID, key string) string {
	return fmt.Sprintf("%s:player:%s:%s", keyPrefix, playerID, key)
}
