// Package config holds the CLI configuration types.
package config

// Game selects which Battlezone backend to monitor.
type Game string

const (
	GameBZ98R Game = "bz98r" // Battlezone 98 Redux (WebSocket lounge)
	GameBZCC  Game = "bzcc"  // Battlezone Combat Commander (RakNet)
	GameBoth  Game = "both"
)

// Default backend hosts, the ones the retail clients talk to.
const (
	DefaultBZ98Host = "battlezone98mp.webdev.rebellion.co.uk:1337"
	DefaultBZCCHost = "battlezone99mp.webdev.rebellion.co.uk:61111"
)

// Config stores all parameters gathered from flags or the interactive
// CLI prompts.
type Config struct {
	Game       Game
	BZ98Host   string // host:port of the BZ98R lounge server
	BZCCHost   string // host:port of the BZCC RakNet server
	PlayerName string // name announced to the lounge
	Key        string // optional lounge authorization key
	Debug      bool
}

// WantBZ98 reports whether the BZ98R backend is monitored.
func (c *Config) WantBZ98() bool {
	return c.Game == GameBZ98R || c.Game == GameBoth
}

// WantBZCC reports whether the BZCC backend is monitored.
func (c *Config) WantBZCC() bool {
	return c.Game == GameBZCC || c.Game == GameBoth
}
