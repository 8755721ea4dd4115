package domain

type AnnotationType string

const (
	AnnotationTypeComment   AnnotationType = "COMMENT"
	AnnotationTypeRectangle AnnotationType = "RECTANGLE"
	AnnotationTypeArrow     AnnotationType = "ARROW"
	AnnotationTypeText      AnnotationType = "TEXT"
)

type AnnotationStatus string

const (
	AnnotationStatusOpen     AnnotationStatus = "OPEN"
	AnnotationStatusResolved AnnotationStatus = "RESOLVED"
)

type Position struct {
	X      float64  `json:"x" bson:"x"`
	Y      float64  `json:"y" bson:"y"`
	Width  *float64 `json:"width,omitempty" bson:"width,omitempty"`
	Height *float64 `json:"height,omitempty" bson:"height,omitempty"`
}

type Author struct {
	Id    string `json:"id" bson:"id"`
	Name  string `json:"name,omitempty" bson:"name,omitempty"`
	Email string `json:"email" bson:"email"`
	Image string `json:"image,omitempty" bson:"image,omitempty"`
}

// DisplayName falls back to the email when no display name is set.
func (a Author) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Email
}

type Annotation struct {
	Id        string           `json:"id" bson:"_id"`
	AssetId   string           `json:"assetId" bson:"assetId"`
	Content   string           `json:"content" bson:"content"`
	Type      AnnotationType   `json:"type" bson:"type"`
	Status    AnnotationStatus `json:"status" bson:"status"`
	Position  Position         `json:"position" bson:"position"`
	CreatedAt int64            `json:"createdAt" bson:"createdAt"`
	Author    Author           `json:"author" bson:"author"`
	Replies   []Reply          `json:"replies" bson:"replies"`
}

type Reply struct {
	Id           string `json:"id" bson:"_id"`
	AnnotationId string `json:"annotationId" bson:"annotationId"`
	Content      string `json:"content" bson:"content"`
	CreatedAt    int64  `json:"createdAt" bson:"createdAt"`
	Author       Author `json:"author" bson:"author"`
}
