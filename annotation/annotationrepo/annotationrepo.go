package annotationrepo

import (
	"context"
	"errors"

	"github.com/anyproto/any-sync/app"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jpjaydus/pixelpin/db"
	"github.com/jpjaydus/pixelpin/domain"
)

const CName = "annotation.repo"

var ErrNotFound = errors.New("annotation not found")

func New() AnnotationRepo {
	return new(annotationRepo)
}

// UpdatePatch carries the mutable annotation fields; nil means leave
// untouched. Concurrent patches race last-write-wins, same as at the
// application layer.
type UpdatePatch struct {
	Content  *string
	Status   *domain.AnnotationStatus
	Position *domain.Position
}

type AnnotationRepo interface {
	app.ComponentRunnable
	AnnotationCreate(ctx context.Context, a domain.Annotation) error
	AnnotationUpdate(ctx context.Context, assetId, id string, patch UpdatePatch) (domain.Annotation, error)
	AnnotationDelete(ctx context.Context, assetId, id string) error
	ReplyAdd(ctx context.Context, reply domain.Reply) error
	ListByAsset(ctx context.Context, assetId string) ([]domain.Annotation, error)
}

var annotationIndexes = []mongo.IndexModel{
	{
		Keys: bson.D{
			{Key: "assetId", Value: 1},
			{Key: "createdAt", Value: 1},
		},
	},
}

type annotationRepo struct {
	db   db.Database
	coll *mongo.Collection
}

func (r *annotationRepo) Init(a *app.App) (err error) {
	r.db = a.MustComponent(db.CName).(db.Database)
	r.coll = r.db.Db().Collection("annotation")
	return nil
}

func (r *annotationRepo) Name() (name string) {
	return CName
}

func (r *annotationRepo) Run(ctx context.Context) (err error) {
	existing, err := r.coll.Indexes().ListSpecifications(ctx)
	if err != nil {
		return err
	}
	if len(existing) <= 1 {
		_, err = r.coll.Indexes().CreateMany(ctx, annotationIndexes)
	}
	return err
}

func (r *annotationRepo) AnnotationCreate(ctx context.Context, a domain.Annotation) (err error) {
	if a.Replies == nil {
		a.Replies = []domain.Reply{}
	}
	_, err = r.coll.InsertOne(ctx, a)
	return err
}

func (r *annotationRepo) AnnotationUpdate(ctx context.Context, assetId, id string, patch UpdatePatch) (updated domain.Annotation, err error) {
	set := bson.D{}
	if patch.Content != nil {
		set = append(set, bson.E{Key: "content", Value: *patch.Content})
	}
	if patch.Status != nil {
		set = append(set, bson.E{Key: "status", Value: *patch.Status})
	}
	if patch.Position != nil {
		set = append(set, bson.E{Key: "position", Value: *patch.Position})
	}
	query := bson.D{{Key: "_id", Value: id}, {Key: "assetId", Value: assetId}}
	if len(set) == 0 {
		if err = r.coll.FindOne(ctx, query).Decode(&updated); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				err = ErrNotFound
			}
			return
		}
		return
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err = r.coll.FindOneAndUpdate(ctx, query, bson.D{{Key: "$set", Value: set}}, opts).Decode(&updated); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			err = ErrNotFound
		}
		return
	}
	return
}

func (r *annotationRepo) AnnotationDelete(ctx context.Context, assetId, id string) (err error) {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}, {Key: "assetId", Value: assetId}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *annotationRepo) ReplyAdd(ctx context.Context, reply domain.Reply) (err error) {
	res, err := r.coll.UpdateOne(
		ctx,
		bson.D{{Key: "_id", Value: reply.AnnotationId}},
		bson.D{{Key: "$push", Value: bson.D{{Key: "replies", Value: reply}}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *annotationRepo) ListByAsset(ctx context.Context, assetId string) (list []domain.Annotation, err error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.D{{Key: "assetId", Value: assetId}}, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cur.Close(ctx)
	}()
	for cur.Next(ctx) {
		var a domain.Annotation
		if err = cur.Decode(&a); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, cur.Err()
}

func (r *annotationRepo) Close(ctx context.Context) (err error) {
	return nil
}
