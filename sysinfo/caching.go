package sysinfo

import (
	"time"

	"github.com/patrickmn/go-cache"

	"machinerun.io/nvmetest"
)

// Prober answers identity questions about one system.
type Prober interface {
	CPU() (CPU, error)
	MAC(ifName string) (string, bool)
}

type prober struct {
	r nvmetest.Runner
}

// NewProber returns a Prober running a command for every question.
func NewProber(r nvmetest.Runner) Prober {
	return &prober{r: r}
}

func (p *prober) CPU() (CPU, error) {
	return QueryCPU(p.r)
}

func (p *prober) MAC(ifName string) (string, bool) {
	return MAC(p.r, ifName)
}

type cachingProber struct {
	p     Prober
	cache *cache.Cache
}

// CachingProber - a Prober remembering answers for the life of a session.
// Failed lookups are not remembered.
func CachingProber(r nvmetest.Runner) Prober {
	const longTime = 30 * time.Minute

	return &cachingProber{
		p:     NewProber(r),
		cache: cache.New(longTime, longTime),
	}
}

func (cp *cachingProber) CPU() (CPU, error) {
	if cached, found := cp.cache.Get("cpu"); found {
		return cached.(CPU), nil
	}

	c, err := cp.p.CPU()
	if err == nil {
		cp.cache.Set("cpu", c, cache.DefaultExpiration)
	}

	return c, err
}

func (cp *cachingProber) MAC(ifName string) (string, bool) {
	cacheName := "mac-" + ifName

	if cached, found := cp.cache.Get(cacheName); found {
		return cached.(string), true
	}

	mac, ok := cp.p.MAC(ifName)
	if ok {
		cp.cache.Set(cacheName, mac, cache.DefaultExpiration)
	}

	return mac, ok
}
