package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"kazini/internal/config"
	"kazini/internal/model/chat"
	"kazini/internal/pkg/logger"
	"kazini/internal/pkg/mongodb"
	"kazini/internal/pkg/sqldb"
	chatrepo "kazini/internal/repository/chat"
)

type assessmentWriter interface {
	SaveAssessment(ctx context.Context, a *chat.Assessment) error
}

// 为开发环境写入一条测评快照，使导师回复带上用户上下文
//
//	SEED_USER_ID=student-1 SEED_FIELD="Computer Science" SEED_GPA=3.4 SEED_CODING=8 go run ./scripts
func main() {
	// 1. 加载配置（与 cmd/root.go 保持一致的搜索路径）
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.kazini")

	viper.SetEnvPrefix("KAZINI")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.SetDefault("store.driver", "mongo")
	viper.SetDefault("mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongo.database", "kazini")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
			os.Exit(1)
		}
	}

	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to unmarshal config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	// 2. 读取测评数据
	a, err := assessmentFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid seed assessment")
	}

	// 3. 打开存储并写入
	ctx := context.Background()
	writer, closeFn, err := openWriter(&cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open store")
	}
	defer closeFn()

	if err := writer.SaveAssessment(ctx, a); err != nil {
		log.Fatal().Err(err).Msg("failed to save assessment")
	}

	log.Info().
		Str("user_id", a.UserID).
		Str("driver", cfg.Store.Driver).
		Msg("assessment seeded")
}

func openWriter(cfg *config.Config) (assessmentWriter, func(), error) {
	switch cfg.Store.Driver {
	case "mongo":
		client, err := mongodb.New(&cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = client.Close(context.Background()) }
		return chatrepo.NewAssessmentRepo(client.Database()), closeFn, nil
	case "postgres", "sqlite":
		db, err := sqldb.Open(&cfg.Store)
		if err != nil {
			return nil, nil, err
		}
		store := chatrepo.NewSQLStore(db)
		if err := store.AutoMigrate(); err != nil {
			_ = sqldb.Close(db)
			return nil, nil, err
		}
		return store, func() { _ = sqldb.Close(db) }, nil
	default:
		return nil, nil, fmt.Errorf("store driver %q does not persist assessments", cfg.Store.Driver)
	}
}

func assessmentFromEnv() (*chat.Assessment, error) {
	a := &chat.Assessment{
		UserID:            os.Getenv("SEED_USER_ID"),
		Field:             os.Getenv("SEED_FIELD"),
		RecommendedCareer: os.Getenv("SEED_CAREER"),
	}
	if a.UserID == "" {
		return nil, errors.New("SEED_USER_ID is required")
	}

	if v := os.Getenv("SEED_GPA"); v != "" {
		gpa, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid SEED_GPA: %w", err)
		}
		a.GPA = &gpa
	}

	var err error
	if a.CodingSkills, err = scoreFromEnv("SEED_CODING"); err != nil {
		return nil, err
	}
	if a.ProblemSolvingSkills, err = scoreFromEnv("SEED_PROBLEM_SOLVING"); err != nil {
		return nil, err
	}
	return a, nil
}

// scoreFromEnv 读取 0-10 的技能分
func scoreFromEnv(key string) (*int, error) {
	v := os.Getenv(key)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > 10 {
		return nil, fmt.Errorf("invalid %s: must be an integer between 0 and 10", key)
	}
	return &n, nil
}
