package service

import (
	"time"

	"my-page/backend/internal/model"
	pkgerrors "my-page/backend/pkg/errors"
)

// ── 抽签生命周期 ──
//
//	draft ─→ open ─→ locked ─(抽签)→ drawn ─(发布)→ published
//	  ↑       │ ↑      │                ↑               │
//	  └───────┘ └──────┤                └──(撤销发布)────┘
//	  ↑                │
//	  └────────────────┘

// 操作名，出现在 StateTransitionError.Op 中
const (
	opTransition = "transition"
	opDelete     = "delete"
	opDraw       = "draw"
	opPublish    = "publish"
	opUnpublish  = "unpublish"
	opRevise     = "revise"
	opEditPeriod = "edit_period"
	opSubmitWish = "submit_wish"
	opDeleteWish = "delete_wish"
	opImportWish = "import_wishes"
)

// isTransitionAllowed 完整的状态图
func isTransitionAllowed(from, to string) bool {
	switch from {
	case model.DrawingStatusDraft:
		return to == model.DrawingStatusOpen
	case model.DrawingStatusOpen:
		return to == model.DrawingStatusLocked || to == model.DrawingStatusDraft
	case model.DrawingStatusLocked:
		return to == model.DrawingStatusDrawn || to == model.DrawingStatusOpen || to == model.DrawingStatusDraft
	case model.DrawingStatusDrawn:
		return to == model.DrawingStatusPublished
	case model.DrawingStatusPublished:
		return to == model.DrawingStatusDrawn
	default:
		return false
	}
}

// isManualTransition 管理员可直接请求的跳转
// drawn 与 published 只能由抽签、发布、撤销发布产生
func isManualTransition(from, to string) bool {
	if to == model.DrawingStatusDrawn || to == model.DrawingStatusPublished {
		return false
	}
	return isTransitionAllowed(from, to)
}

// isRevert 回退跳转
func isRevert(from, to string) bool {
	return (from == model.DrawingStatusOpen && to == model.DrawingStatusDraft) ||
		(from == model.DrawingStatusLocked && to == model.DrawingStatusOpen) ||
		(from == model.DrawingStatusLocked && to == model.DrawingStatusDraft)
}

// transitionDrawing 纯函数：返回跳转后的副本并维护时间戳，原对象不变
func transitionDrawing(op string, drawing model.Drawing, target string, now func() time.Time) (model.Drawing, error) {
	if now == nil {
		now = time.Now
	}
	if !isTransitionAllowed(drawing.Status, target) {
		return model.Drawing{}, &pkgerrors.StateTransitionError{Op: op, From: drawing.Status, To: target}
	}

	updated := drawing
	at := now().UTC()
	updated.Status = target

	switch target {
	case model.DrawingStatusOpen:
		if drawing.Status == model.DrawingStatusDraft {
			updated.OpenedAt = &at
		}
		updated.LockedAt = nil
	case model.DrawingStatusLocked:
		updated.LockedAt = &at
	case model.DrawingStatusDraft:
		updated.OpenedAt = nil
		updated.LockedAt = nil
	case model.DrawingStatusDrawn:
		if drawing.Status == model.DrawingStatusPublished {
			updated.PublishedAt = nil
			updated.PublishedExecutionID = nil
		} else {
			updated.DrawnAt = &at
		}
	case model.DrawingStatusPublished:
		updated.PublishedAt = &at
	}
	return updated, nil
}

// requireStatus 状态门禁：当前状态不在 allowed 中时返回 StateTransitionError
func requireStatus(drawing *model.Drawing, op string, allowed ...string) error {
	for _, s := range allowed {
		if drawing.Status == s {
			return nil
		}
	}
	return &pkgerrors.StateTransitionError{Op: op, From: drawing.Status}
}
