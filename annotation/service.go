// Package annotation is the persist-then-broadcast mutation flow: a
// mutation is committed to storage first, then announced through the
// realtime gateway. A broadcast failure never fails the mutation.
package annotation

import (
	"context"
	"time"

	"github.com/anyproto/any-sync/app"
	"github.com/google/uuid"

	"github.com/jpjaydus/pixelpin/annotation/annotationcache"
	"github.com/jpjaydus/pixelpin/annotation/annotationrepo"
	"github.com/jpjaydus/pixelpin/domain"
	"github.com/jpjaydus/pixelpin/events"
	"github.com/jpjaydus/pixelpin/gateway"
)

const CName = "annotation.service"

func New() Service {
	return new(annotationService)
}

type CreateAnnotationRequest struct {
	AssetId  string                `json:"assetId"`
	Content  string                `json:"content"`
	Type     domain.AnnotationType `json:"type"`
	Position domain.Position       `json:"position"`
	Author   domain.Author         `json:"author"`
}

type CreateReplyRequest struct {
	AssetId      string        `json:"assetId"`
	AnnotationId string        `json:"annotationId"`
	Content      string        `json:"content"`
	Author       domain.Author `json:"author"`
}

type Service interface {
	app.ComponentRunnable
	CreateAnnotation(ctx context.Context, req CreateAnnotationRequest) (domain.Annotation, error)
	UpdateAnnotation(ctx context.Context, assetId, id string, patch annotationrepo.UpdatePatch) (domain.Annotation, error)
	DeleteAnnotation(ctx context.Context, assetId, id string) error
	CreateReply(ctx context.Context, req CreateReplyRequest) (domain.Reply, error)
	ListAnnotations(ctx context.Context, assetId string) ([]domain.Annotation, error)
}

type annotationService struct {
	repo    annotationrepo.AnnotationRepo
	cache   annotationcache.Cache
	gateway gateway.Gateway
}

func (s *annotationService) Init(a *app.App) (err error) {
	s.repo = a.MustComponent(annotationrepo.CName).(annotationrepo.AnnotationRepo)
	s.cache = a.MustComponent(annotationcache.CName).(annotationcache.Cache)
	s.gateway = a.MustComponent(gateway.CName).(gateway.Gateway)
	return nil
}

func (s *annotationService) Name() (name string) {
	return CName
}

func (s *annotationService) Run(ctx context.Context) (err error) {
	return nil
}

func (s *annotationService) CreateAnnotation(ctx context.Context, req CreateAnnotationRequest) (a domain.Annotation, err error) {
	a = domain.Annotation{
		Id:        uuid.NewString(),
		AssetId:   req.AssetId,
		Content:   req.Content,
		Type:      req.Type,
		Status:    domain.AnnotationStatusOpen,
		Position:  req.Position,
		CreatedAt: time.Now().UnixMilli(),
		Author:    req.Author,
		Replies:   []domain.Reply{},
	}
	if err = s.repo.AnnotationCreate(ctx, a); err != nil {
		return domain.Annotation{}, err
	}
	s.cache.Invalidate(ctx, req.AssetId)
	s.gateway.Publish(ctx, req.AssetId, events.AnnotationCreated{Annotation: a})
	return a, nil
}

func (s *annotationService) UpdateAnnotation(ctx context.Context, assetId, id string, patch annotationrepo.UpdatePatch) (a domain.Annotation, err error) {
	if a, err = s.repo.AnnotationUpdate(ctx, assetId, id, patch); err != nil {
		return domain.Annotation{}, err
	}
	s.cache.Invalidate(ctx, assetId)
	s.gateway.Publish(ctx, assetId, events.AnnotationUpdated{Annotation: a})
	return a, nil
}

func (s *annotationService) DeleteAnnotation(ctx context.Context, assetId, id string) (err error) {
	if err = s.repo.AnnotationDelete(ctx, assetId, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, assetId)
	s.gateway.Publish(ctx, assetId, events.AnnotationDeleted{Id: id})
	return nil
}

func (s *annotationService) CreateReply(ctx context.Context, req CreateReplyRequest) (r domain.Reply, err error) {
	r = domain.Reply{
		Id:           uuid.NewString(),
		AnnotationId: req.AnnotationId,
		Content:      req.Content,
		CreatedAt:    time.Now().UnixMilli(),
		Author:       req.Author,
	}
	if err = s.repo.ReplyAdd(ctx, r); err != nil {
		return domain.Reply{}, err
	}
	s.cache.Invalidate(ctx, req.AssetId)
	s.gateway.Publish(ctx, req.AssetId, events.ReplyCreated{Reply: r})
	return r, nil
}

func (s *annotationService) ListAnnotations(ctx context.Context, assetId string) ([]domain.Annotation, error) {
	return s.cache.Annotations(ctx, assetId)
}

func (s *annotationService) Close(ctx context.Context) (err error) {
	return nil
}
