// Copyright © 2024 Ember Engine Contributors
// Use is governed by a BSD-style license found in the LICENSE file.

package ember

// mq.go implements §4.4's MQ: the ordered, stable sequence of ModelTx the
// renderer walks once per frame. Grounded in the teacher's scene.go, whose
// []*part was an ordered, application-managed draw list with Add/Rem/
// SetLast operations; generalized here to hold ModelTx instead of the
// teacher's fat Part and to add the outline-ID counter and frustum-test
// walk described in §4.4's MQ-iteration paragraph.

// MQ is the ordered draw list a Scene's renderer walks each frame.
type MQ struct {
	txs []*ModelTx
}

// NewMQ returns an empty draw list.
func NewMQ() *MQ { return &MQ{} }

// Add appends a ModelTx to the end of the list (drawn last among equals).
func (q *MQ) Add(tx *ModelTx) { q.txs = append(q.txs, Get(tx)) }

// Remove drops a ModelTx from the list, releasing MQ's reference.
func (q *MQ) Remove(tx *ModelTx) {
	for i, cur := range q.txs {
		if cur == tx {
			q.txs = append(q.txs[:i], q.txs[i+1:]...)
			Put(tx)
			return
		}
	}
}

// SetLast moves tx to the end of the list, used to force UI/overlay
// ModelTx to draw after everything else.
func (q *MQ) SetLast(tx *ModelTx) {
	for i, cur := range q.txs {
		if cur == tx {
			q.txs = append(q.txs[:i], q.txs[i+1:]...)
			q.txs = append(q.txs, tx)
			return
		}
	}
	q.Add(tx)
}

// Len returns the number of ModelTx currently in the list.
func (q *MQ) Len() int { return len(q.txs) }

// VisitFunc is called once per live, visible, in-frustum entity during a
// Walk, in MQ order within each ModelTx. outlineID is a running counter
// across the whole walk, used to drive a per-entity "solid outline ID" for
// edge-detection passes (§4.4).
type VisitFunc func(tx *ModelTx, e *EntityRecord, outlineID int)

// WalkStats is Walk's per-frame outcome: how many entities were
// dispatched to visit versus dropped by the frustum test specifically.
// Dead/invisible entities are skipped without counting as culled, since
// the cube fly-through / outside-frustum-cull scenarios (§8) only track
// frustum rejections.
type WalkStats struct {
	Rendered int
	Culled   int
}

// Walk iterates the MQ in list order. For each ModelTx it is the caller's
// responsibility to bind render state/textures/attributes once (the
// renderer-state part of §4.4's MQ iteration); Walk itself only decides,
// per entity, whether it survives the dead/invisible/frustum tests and
// assigns outline ids to the survivors.
func (q *MQ) Walk(frustum Frustum, visit VisitFunc) WalkStats {
	var stats WalkStats
	outlineID := 0
	for _, tx := range q.txs {
		for _, e := range tx.Entities() {
			if e.Flags&FlagAlive == 0 || e.Flags&FlagVisible == 0 {
				continue
			}
			if e.Flags&FlagSkipCulling == 0 && !frustum.ContainsAABB(e.WorldAABB) {
				stats.Culled++
				continue
			}
			if e.Flags&FlagOutlineExclude == 0 {
				outlineID++
			}
			visit(tx, e, outlineID)
			stats.Rendered++
		}
	}
	return stats
}

// Dispose releases MQ's reference on every ModelTx it holds.
func (q *MQ) Dispose() {
	for _, tx := range q.txs {
		Put(tx)
	}
	q.txs = nil
}
