package chat

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Assessment 学生测评快照
// 由用户档案模块维护，本服务只读
type Assessment struct {
	UserID               string   `bson:"user_id" json:"user_id" gorm:"primaryKey;size:64"`
	Field                string   `bson:"field,omitempty" json:"field,omitempty" gorm:"size:120"`
	GPA                  *float64 `bson:"gpa,omitempty" json:"gpa,omitempty"`
	CodingSkills         *int     `bson:"coding_skills,omitempty" json:"coding_skills,omitempty"`
	ProblemSolvingSkills *int     `bson:"problem_solving_skills,omitempty" json:"problem_solving_skills,omitempty"`
	RecommendedCareer    string   `bson:"recommended_career,omitempty" json:"recommended_career,omitempty" gorm:"size:120"`
}

// TableName GORM 表名
func (Assessment) TableName() string {
	return "assessments"
}

// Collection 返回集合名称
func (a *Assessment) Collection() string {
	return "assessments"
}

// EnsureIndexes 创建和维护索引
func (a *Assessment) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(a.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_user_id").SetUnique(true),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
