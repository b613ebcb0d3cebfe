package attendance

import (
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// cardCacheTTL bounds how long another process can keep crediting scans to the
// previous owner of a reassigned card.
const cardCacheTTL = 5 * time.Second

// cardCache maps lower-cased card ids to persons.
type cardCache struct {
	c *cache.Cache
}

func newCardCache(ttl time.Duration) cardCache {
	return cardCache{c: cache.New(ttl, 2*ttl)}
}

func cardKey(cardID string) string {
	return strings.ToLower(NormalizeCard(cardID))
}

func (cc cardCache) get(cardID string) (Person, bool) {
	v, ok := cc.c.Get(cardKey(cardID))
	if !ok {
		return Person{}, false
	}
	return v.(Person), true
}

func (cc cardCache) put(p Person) {
	cc.c.SetDefault(cardKey(p.CardID), p)
}

// flush drops every entry; any person change may move a card.
func (cc cardCache) flush() {
	cc.c.Flush()
}
