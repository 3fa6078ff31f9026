// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package workflow

import (
	"context"
	"slices"
	"strings"

	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/validation"
)

// PhotoStep is item substep 5. Only photo metadata is kept in the session.
type PhotoStep struct{ d *Deps }

func (ph *PhotoStep) Initialize(ctx context.Context, id string) (*model.Session, error) {
	return initStep(ctx, ph.d, id, model.PhasePhotoDocumentation, func(w *model.ItemWizardContext) {
		if w.Photos == nil {
			w.Photos = &model.PhotoDocumentation{State: model.StepEnteringPhotos}
		}
	})
}

func (ph *PhotoStep) AddPhoto(ctx context.Context, id string, p model.AddPhotoPayload) (*model.Session, error) {
	photoID := ph.d.newID()
	return ph.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		doc, err := photos(s)
		if err != nil {
			return nil, err
		}
		photo := model.Photo{
			ID:        photoID,
			FileName:  strings.TrimSpace(p.FileName),
			MimeType:  strings.ToLower(strings.TrimSpace(p.MimeType)),
			SizeBytes: p.SizeBytes,
			AddedAt:   ph.d.now(),
		}
		if errs := validation.Photo(photo, len(doc.Photos)); errs != nil {
			return fail(&doc.Errors, errs)
		}
		doc.Photos = append(doc.Photos, photo)
		doc.Skipped = false
		doc.SkipReason = ""
		doc.State = model.StepEnteringPhotos
		return ok(&doc.Errors)
	})
}

func (ph *PhotoStep) RemovePhoto(ctx context.Context, id string, p model.RemovePhotoPayload) (*model.Session, error) {
	return ph.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		doc, err := photos(s)
		if err != nil {
			return nil, err
		}
		i := slices.IndexFunc(doc.Photos, func(x model.Photo) bool { return x.ID == p.PhotoID })
		if i < 0 {
			return fail(&doc.Errors, []string{"photo not found"})
		}
		doc.Photos = slices.Delete(doc.Photos, i, i+1)
		doc.State = model.StepEnteringPhotos
		return ok(&doc.Errors)
	})
}

// SkipPhotos documents why the item has no photos.
func (ph *PhotoStep) SkipPhotos(ctx context.Context, id string, p model.SkipPhotosPayload) (*model.Session, error) {
	return ph.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		doc, err := photos(s)
		if err != nil {
			return nil, err
		}
		reason := strings.TrimSpace(p.Reason)
		if reason == "" {
			return fail(&doc.Errors, []string{validation.MsgSkipReasonRequired})
		}
		doc.Photos = nil
		doc.Skipped = true
		doc.SkipReason = reason
		doc.State = model.StepEnteringPhotos
		return ok(&doc.Errors)
	})
}

func (ph *PhotoStep) CurrentState(ctx context.Context, id string) (model.StepState, error) {
	doc, err := ph.CurrentData(ctx, id)
	if err != nil {
		return "", err
	}
	return doc.State, nil
}

func (ph *PhotoStep) CurrentData(ctx context.Context, id string) (*model.PhotoDocumentation, error) {
	s, err := ph.d.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return photos(s)
}

func (ph *PhotoStep) Reset(ctx context.Context, id string) (*model.Session, error) {
	return ph.d.edit(ctx, id, func(s *model.Session) ([]string, error) {
		doc, err := photos(s)
		if err != nil {
			return nil, err
		}
		*doc = model.PhotoDocumentation{State: model.StepEnteringPhotos}
		return nil, nil
	})
}

func photos(s *model.Session) (*model.PhotoDocumentation, error) {
	w, err := currentItem(s)
	if err != nil {
		return nil, err
	}
	if w.Photos == nil {
		return nil, missing("photo documentation")
	}
	return w.Photos, nil
}
