package session

import (
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/arcwardens/outreach/internal/domain"
)

// sampleAnalytics generates delivery metrics for an executed campaign.
// The generator is seeded from the campaign id, so repeated reads for
// the same campaign agree without a stored record.
func sampleAnalytics(campaignID string) domain.Analytics {
	h := fnv.New32a()
	h.Write([]byte(campaignID))
	rng := rand.New(rand.NewSource(int64(h.Sum32())))

	sent := 500 + rng.Intn(4501)
	openedLo := sent * 15 / 100
	openedHi := sent * 35 / 100
	opened := openedLo + rng.Intn(openedHi-openedLo+1)
	repliesLo := opened * 5 / 100
	repliesHi := opened * 15 / 100
	replies := repliesLo + rng.Intn(repliesHi-repliesLo+1)
	bounceRate := math.Round((1.0+rng.Float64()*4.0)*10) / 10

	return domain.Analytics{
		EmailsSent:   sent,
		EmailsOpened: opened,
		Replies:      replies,
		BounceRate:   bounceRate,
	}
}
