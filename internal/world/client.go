package world

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Client is a thin HTTP boundary to the remote world simulation. It is
// stateless: every call carries the bearer token of the acting session
// and owns no retries beyond the single request.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient creates a world API client.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// AuthChallenge fetches a one-time challenge for a wallet address.
func (c *Client) AuthChallenge(ctx context.Context, address string) ([]byte, error) {
	var out struct {
		Challenge string `json:"challenge"`
	}
	path := "/auth/challenge?address=" + url.QueryEscape(address)
	if err := c.get(ctx, "", path, &out); err != nil {
		return nil, err
	}
	if out.Challenge == "" {
		return nil, fmt.Errorf("empty auth challenge for %s", address)
	}
	return base64.StdEncoding.DecodeString(out.Challenge)
}

// CreateSession exchanges a signed challenge for a bearer session.
func (c *Client) CreateSession(ctx context.Context, address string, signature []byte) (*Session, error) {
	in := map[string]string{
		"address":   address,
		"signature": base64.StdEncoding.EncodeToString(signature),
	}
	var sess Session
	if err := c.post(ctx, "", "/auth/session", in, &sess); err != nil {
		return nil, err
	}
	if sess.Token == "" {
		return nil, fmt.Errorf("session rejected for %s", address)
	}
	return &sess, nil
}

// Zones fetches the world's zone catalog.
func (c *Client) Zones(ctx context.Context, token string) ([]ZoneInfo, error) {
	var zones []ZoneInfo
	if err := c.get(ctx, token, "/zones", &zones); err != nil {
		return nil, err
	}
	return zones, nil
}

// ZoneState fetches one zone's live entity map.
func (c *Client) ZoneState(ctx context.Context, token, zoneID string) (*ZoneState, error) {
	var zs ZoneState
	if err := c.get(ctx, token, "/zones/"+url.PathEscape(zoneID)+"/state", &zs); err != nil {
		return nil, err
	}
	return &zs, nil
}

// WorldState fetches the full multi-zone state. Used only for entity
// re-scans; zone-local reads should go through ZoneState.
func (c *Client) WorldState(ctx context.Context, token string) ([]ZoneState, error) {
	var zones []ZoneState
	if err := c.get(ctx, token, "/state", &zones); err != nil {
		return nil, err
	}
	return zones, nil
}

// ZoneNeighbors fetches a zone's adjacency list with per-neighbor level
// requirements.
func (c *Client) ZoneNeighbors(ctx context.Context, token, zoneID string) ([]ZoneLink, error) {
	var links []ZoneLink
	if err := c.get(ctx, token, "/zones/"+url.PathEscape(zoneID)+"/neighbors", &links); err != nil {
		return nil, err
	}
	return links, nil
}

// Move issues a movement command toward a coordinate.
func (c *Client) Move(ctx context.Context, token, entityID string, to Position) (*CommandResult, error) {
	return c.command(ctx, token, "/commands/move", map[string]any{
		"entity_id": entityID,
		"x":         to.X,
		"y":         to.Y,
	})
}

// Attack issues an attack command against a target entity.
func (c *Client) Attack(ctx context.Context, token, entityID, targetID string) (*CommandResult, error) {
	return c.command(ctx, token, "/commands/attack", map[string]any{
		"entity_id": entityID,
		"target_id": targetID,
	})
}

// Travel issues a travel command toward a named zone. The world resolves
// the actual path and portal usage.
func (c *Client) Travel(ctx context.Context, token, entityID, zoneID string) (*CommandResult, error) {
	return c.command(ctx, token, "/commands/travel", map[string]any{
		"entity_id": entityID,
		"zone_id":   zoneID,
	})
}

// Quests fetches the quests available at the entity's current location.
func (c *Client) Quests(ctx context.Context, token, zoneID string) ([]Quest, error) {
	var quests []Quest
	if err := c.get(ctx, token, "/zones/"+url.PathEscape(zoneID)+"/quests", &quests); err != nil {
		return nil, err
	}
	return quests, nil
}

// AcceptQuest accepts a quest for the entity.
func (c *Client) AcceptQuest(ctx context.Context, token, entityID, questID string) (*CommandResult, error) {
	return c.command(ctx, token, "/commands/quest/accept", map[string]any{
		"entity_id": entityID,
		"quest_id":  questID,
	})
}

// LearnProfession teaches the entity a profession at a trainer.
func (c *Client) LearnProfession(ctx context.Context, token, entityID, profession string) (*CommandResult, error) {
	return c.command(ctx, token, "/commands/profession/learn", map[string]any{
		"entity_id":  entityID,
		"profession": profession,
	})
}

// Gather harvests a resource node.
func (c *Client) Gather(ctx context.Context, token, entityID, nodeID string) (*CommandResult, error) {
	return c.command(ctx, token, "/commands/gather", map[string]any{
		"entity_id": entityID,
		"node_id":   nodeID,
	})
}

// Recipes fetches a station kind's recipe catalog in priority order.
func (c *Client) Recipes(ctx context.Context, token string, station StationKind) ([]Recipe, error) {
	var recipes []Recipe
	if err := c.get(ctx, token, "/recipes?station="+url.QueryEscape(string(station)), &recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

// Craft attempts a recipe at a station. Forging, brewing and cooking all
// go through this call; the station determines the chain.
func (c *Client) Craft(ctx context.Context, token, entityID, stationID, recipeID string) (*CommandResult, error) {
	return c.command(ctx, token, "/commands/craft", map[string]any{
		"entity_id":  entityID,
		"station_id": stationID,
		"recipe_id":  recipeID,
	})
}

// Consume uses a consumable item from the entity's inventory.
func (c *Client) Consume(ctx context.Context, token, entityID, itemID string) (*CommandResult, error) {
	return c.command(ctx, token, "/commands/consume", map[string]any{
		"entity_id": entityID,
		"item_id":   itemID,
	})
}

// Equip equips an item from the entity's inventory.
func (c *Client) Equip(ctx context.Context, token, entityID, itemID string) (*CommandResult, error) {
	return c.command(ctx, token, "/commands/equip", map[string]any{
		"entity_id": entityID,
		"item_id":   itemID,
	})
}

// Repair repairs all damaged gear slots at a repair-capable merchant.
func (c *Client) Repair(ctx context.Context, token, entityID, merchantID string) (*CommandResult, error) {
	return c.command(ctx, token, "/commands/repair", map[string]any{
		"entity_id":   entityID,
		"merchant_id": merchantID,
	})
}

// ShopCatalog fetches a merchant's catalog.
func (c *Client) ShopCatalog(ctx context.Context, token, merchantID string) ([]Item, error) {
	var items []Item
	if err := c.get(ctx, token, "/merchants/"+url.PathEscape(merchantID)+"/catalog", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Buy purchases an item from a merchant.
func (c *Client) Buy(ctx context.Context, token, entityID, merchantID, itemID string) (*CommandResult, error) {
	return c.command(ctx, token, "/commands/buy", map[string]any{
		"entity_id":   entityID,
		"merchant_id": merchantID,
		"item_id":     itemID,
	})
}

// Balance reads the entity's gold balance.
func (c *Client) Balance(ctx context.Context, token, entityID string) (int, error) {
	var out struct {
		Gold int `json:"gold"`
	}
	if err := c.get(ctx, token, "/entities/"+url.PathEscape(entityID)+"/balance", &out); err != nil {
		return 0, err
	}
	return out.Gold, nil
}

// Enchant applies an enchantment consumable to the equipped weapon at an
// altar.
func (c *Client) Enchant(ctx context.Context, token, entityID, altarID, itemID string) (*CommandResult, error) {
	return c.command(ctx, token, "/commands/enchant", map[string]any{
		"entity_id": entityID,
		"altar_id":  altarID,
		"item_id":   itemID,
	})
}

// command posts a command payload with a fresh action ID and decodes the
// world's accepted/reason verdict.
func (c *Client) command(ctx context.Context, token, path string, payload map[string]any) (*CommandResult, error) {
	payload["action_id"] = uuid.New().String()
	var result CommandResult
	if err := c.post(ctx, token, path, payload, &result); err != nil {
		return nil, err
	}
	if !result.Accepted {
		c.logger.Debug("command rejected",
			zap.String("path", path),
			zap.String("reason", result.Reason))
	}
	return &result, nil
}

func (c *Client) get(ctx context.Context, token, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, token, out)
}

func (c *Client) post(ctx context.Context, token, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, token, out)
}

func (c *Client) do(req *http.Request, token string, out any) error {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("world API error %d on %s: %s", resp.StatusCode, req.URL.Path, string(respBody))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
