// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package memnode

import (
	"sync"

	"github.com/ava-labs/queryvm/facade"
)

var _ facade.Extensions = (*Extensions)(nil)

// Extensions is the registry of loaded node extensions.
type Extensions struct {
	lock sync.RWMutex
	exts []facade.Extension
}

func NewExtensions(exts ...facade.Extension) *Extensions {
	return &Extensions{exts: exts}
}

func (e *Extensions) Register(ext facade.Extension) {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.exts = append(e.exts, ext)
}

func (e *Extensions) Extensions() []facade.Extension {
	e.lock.RLock()
	defer e.lock.RUnlock()

	return append([]facade.Extension(nil), e.exts...)
}
