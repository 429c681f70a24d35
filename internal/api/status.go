package api

import (
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Guild is a guild the bot reported as active.
type Guild struct {
	ID          string `json:"id" binding:"required"`
	Name        string `json:"name"`
	MemberCount int    `json:"memberCount"`
}

// GuildSet holds reported guilds keyed by id. Guilds are never removed.
type GuildSet struct {
	mu     sync.RWMutex
	guilds map[string]Guild
}

func NewGuildSet() *GuildSet {
	return &GuildSet{guilds: make(map[string]Guild)}
}

// Add inserts or refreshes g.
func (s *GuildSet) Add(g Guild) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guilds[g.ID] = g
}

// List returns the guilds ordered by id.
func (s *GuildSet) List() []Guild {
	s.mu.RLock()
	out := make([]Guild, 0, len(s.guilds))
	for _, g := range s.guilds {
		out = append(out, g)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b Guild) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func (s *GuildSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.guilds)
}

func (s *Server) addGuild(c *gin.Context) {
	var g Guild
	if err := c.ShouldBindJSON(&g); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.guilds.Add(g)
	log.Info().Str("guild", g.ID).Str("name", g.Name).Int("members", g.MemberCount).Msg("[API] Guild added")
	c.JSON(http.StatusOK, true)
}

func (s *Server) listGuilds(c *gin.Context) {
	c.JSON(http.StatusOK, s.guilds.List())
}
