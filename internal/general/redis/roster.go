package redis

import (
	"context"
	"fmt"
	"sort"

	"train-chat/internal/ports"

	"github.com/redis/go-redis/v9"
)

const roomsKey = "rooms"

func membersKey(roomID string) string { return "room:" + roomID + ":members" }

// leaveScript drops the member and forgets the room once it is empty.
var leaveScript = redis.NewScript(`
	redis.call('HDEL', KEYS[1], ARGV[1])
	if redis.call('HLEN', KEYS[1]) == 0 then
		redis.call('SREM', KEYS[2], ARGV[2])
	end
	return 1
`)

// Roster implements ports.RosterStore. Each room is a hash of
// connection id to nickname; the rooms set indexes non-empty rooms.
type Roster struct {
	cli redis.UniversalClient
}

func NewRoster(cli redis.UniversalClient) ports.RosterStore {
	return &Roster{cli: cli}
}

func (r *Roster) Join(ctx context.Context, roomID, connectionID, nickname string) error {
	_, err := r.cli.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, membersKey(roomID), connectionID, nickname)
		p.SAdd(ctx, roomsKey, roomID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("roster join %s: %w", roomID, err)
	}
	return nil
}

func (r *Roster) Leave(ctx context.Context, roomID, connectionID string) error {
	keys := []string{membersKey(roomID), roomsKey}
	if err := leaveScript.Run(ctx, r.cli, keys, connectionID, roomID).Err(); err != nil {
		return fmt.Errorf("roster leave %s: %w", roomID, err)
	}
	return nil
}

// Rooms lists every non-empty room, sorted by id, members sorted by
// connection id.
func (r *Roster) Rooms(ctx context.Context) ([]ports.RoomOccupancy, error) {
	ids, err := r.cli.SMembers(ctx, roomsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("roster rooms: %w", err)
	}
	sort.Strings(ids)

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = r.cli.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = p.HGetAll(ctx, membersKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("roster members: %w", err)
	}

	rooms := make([]ports.RoomOccupancy, 0, len(ids))
	for i, id := range ids {
		m := cmds[i].Val()
		if len(m) == 0 {
			continue
		}
		occ := ports.RoomOccupancy{RoomID: id, Count: len(m), Members: make([]ports.RoomMember, 0, len(m))}
		for conn, nick := range m {
			occ.Members = append(occ.Members, ports.RoomMember{ConnectionID: conn, Nickname: nick})
		}
		sort.Slice(occ.Members, func(a, b int) bool {
			return occ.Members[a].ConnectionID < occ.Members[b].ConnectionID
		})
		rooms = append(rooms, occ)
	}
	return rooms, nil
}
