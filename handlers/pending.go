// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"sync"
	"time"
)

// pendingTTL bounds how long a started verification can be used to answer.
const pendingTTL = 10 * time.Minute

type pendingOrder struct {
	poll    string
	ak      string
	expires time.Time
}

// pendingOrders remembers which poll and anonymous key each identity
// verification was started for, so an order reference cannot be replayed
// for another identity.
type pendingOrders struct {
	mu     sync.Mutex
	orders map[string]pendingOrder
	now    func() time.Time
}

func newPendingOrders(now func() time.Time) *pendingOrders {
	return &pendingOrders{orders: make(map[string]pendingOrder), now: now}
}

func (p *pendingOrders) add(orderRef, poll, ak string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for ref, o := range p.orders {
		if now.After(o.expires) {
			delete(p.orders, ref)
		}
	}
	p.orders[orderRef] = pendingOrder{poll: poll, ak: ak, expires: now.Add(pendingTTL)}
}

// matches reports whether orderRef was started for poll and ak and has not expired.
func (p *pendingOrders) matches(orderRef, poll, ak string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	o, ok := p.orders[orderRef]
	if !ok || p.now().After(o.expires) {
		return false
	}
	return o.poll == poll && o.ak == ak
}

func (p *pendingOrders) remove(orderRef string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.orders, orderRef)
}
