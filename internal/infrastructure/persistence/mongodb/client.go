// Package mongodb MongoDB图书存储
//
// 文档结构与关系库的books表一一对应，ID使用ObjectID（对外为24位十六进制字符串）。
// 启动时确保索引存在：isbn唯一索引、标题/作者/简介全文索引、常用过滤字段普通索引。
package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/infrastructure/config"
)

// NewClient 创建MongoDB客户端并测试连接
func NewClient(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(cfg.Timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("连接MongoDB失败: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("MongoDB连接测试失败: %w", err)
	}

	zap.L().Info("MongoDB连接成功", zap.String("database", cfg.Database))
	return client, nil
}

// NewCollection 获取图书集合并确保索引
func NewCollection(ctx context.Context, client *mongo.Client, cfg config.MongoConfig) (*mongo.Collection, error) {
	coll := client.Database(cfg.Database).Collection(cfg.Collection)

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	if err := EnsureIndexes(ctx, coll); err != nil {
		return nil, err
	}
	return coll, nil
}

// EnsureIndexes 创建索引(已存在时为no-op)
func EnsureIndexes(ctx context.Context, coll *mongo.Collection) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: fieldISBN, Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_isbn"),
		},
		{
			Keys: bson.D{
				{Key: fieldTitle, Value: "text"},
				{Key: fieldAuthor, Value: "text"},
				{Key: fieldDescription, Value: "text"},
			},
			Options: options.Index().SetName("text_search"),
		},
		{Keys: bson.D{{Key: fieldGenre, Value: 1}}},
		{Keys: bson.D{{Key: fieldAvailable, Value: 1}}},
		{Keys: bson.D{{Key: fieldDueDate, Value: 1}}},
		{Keys: bson.D{{Key: fieldCreatedAt, Value: -1}}},
	}

	if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("创建MongoDB索引失败: %w", err)
	}
	return nil
}
