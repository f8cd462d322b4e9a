package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/sirupsen/logrus"
)

type Config struct {
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`

	DBType     string `env:"DBType" envDefault:"sqlite"`
	DSNURL     string `env:"DSN_URL" envDefault:""`
	DBUser     string `env:"DBUser" envDefault:""`
	DBPassword string `env:"DBPassword" envDefault:""`
	DBAddr     string `env:"DBAddr" envDefault:""`
	DBName     string `env:"DBName" envDefault:"pokefusion"`
	DBPath     string `env:"DBPath" envDefault:"datas/pokefusion.db"`
	DBPort     string `env:"DBPort" envDefault:"3306"`

	StorageType          string `env:"STORAGE_TYPE" envDefault:"local"`
	StorageLocalDir      string `env:"STORAGE_LOCAL_DIR" envDefault:"datas/fusions"`
	StoragePublicBaseURL string `env:"STORAGE_PUBLIC_BASE_URL" envDefault:"/files"`

	// S3 兼容存储配置
	StorageS3Region          string `env:"STORAGE_S3_REGION"`
	StorageS3Bucket          string `env:"STORAGE_S3_BUCKET"`
	StorageS3Prefix          string `env:"STORAGE_S3_PREFIX"`
	StorageS3Endpoint        string `env:"STORAGE_S3_ENDPOINT"`
	StorageS3AccessKeyID     string `env:"STORAGE_S3_ACCESS_KEY_ID"`
	StorageS3SecretAccessKey string `env:"STORAGE_S3_SECRET_ACCESS_KEY"`
	StorageS3SessionToken    string `env:"STORAGE_S3_SESSION_TOKEN"`
	StorageS3ForcePathStyle  bool   `env:"STORAGE_S3_FORCE_PATH_STYLE" envDefault:"false"`

	// 阿里云 OSS 存储配置
	StorageOSSEndpoint        string `env:"STORAGE_OSS_ENDPOINT"`
	StorageOSSBucket          string `env:"STORAGE_OSS_BUCKET"`
	StorageOSSPrefix          string `env:"STORAGE_OSS_PREFIX"`
	StorageOSSAccessKeyID     string `env:"STORAGE_OSS_ACCESS_KEY_ID"`
	StorageOSSAccessKeySecret string `env:"STORAGE_OSS_ACCESS_KEY_SECRET"`

	// 腾讯云 COS 存储配置
	StorageCOSBucketURL string `env:"STORAGE_COS_BUCKET_URL"`
	StorageCOSPrefix    string `env:"STORAGE_COS_PREFIX"`
	StorageCOSSecretID  string `env:"STORAGE_COS_SECRET_ID"`
	StorageCOSSecretKey string `env:"STORAGE_COS_SECRET_KEY"`

	// Cloudflare R2 存储配置
	StorageR2AccountID       string `env:"STORAGE_R2_ACCOUNT_ID"`
	StorageR2Endpoint        string `env:"STORAGE_R2_ENDPOINT"`
	StorageR2Region          string `env:"STORAGE_R2_REGION" envDefault:"auto"`
	StorageR2Bucket          string `env:"STORAGE_R2_BUCKET"`
	StorageR2Prefix          string `env:"STORAGE_R2_PREFIX"`
	StorageR2AccessKeyID     string `env:"STORAGE_R2_ACCESS_KEY_ID"`
	StorageR2SecretAccessKey string `env:"STORAGE_R2_SECRET_ACCESS_KEY"`

	ReplicateAPIKey  string `env:"REPLICATE_API_KEY" envDefault:""`
	OpenAIAPIKey     string `env:"OPENAI_API_KEY" envDefault:""`
	GeminiAPIKey     string `env:"GEMINI_API_KEY" envDefault:""`
	VolcengineAPIKey string `env:"VOLCENGINE_API_KEY" envDefault:""`

	ReplicateBlendModel   string `env:"REPLICATE_BLEND_MODEL" envDefault:"fofr/image-merger"`
	ReplicateEnhanceModel string `env:"REPLICATE_ENHANCE_MODEL" envDefault:"stability-ai/sdxl"`
	OpenAIDescribeModel   string `env:"OPENAI_DESCRIBE_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIImageModel      string `env:"OPENAI_IMAGE_MODEL" envDefault:"gpt-image-1"`
	GeminiModel           string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash-exp"`
	VolcengineModel       string `env:"VOLCENGINE_MODEL" envDefault:"doubao-seedream-4-0-250828"`

	// 每个阶段使用的供应商
	BlendProvider    string `env:"BLEND_PROVIDER" envDefault:"replicate"`
	DescribeProvider string `env:"DESCRIBE_PROVIDER" envDefault:"openai"`
	EnhanceProvider  string `env:"ENHANCE_PROVIDER" envDefault:"openai"`

	// 融合流水线配置
	EnableBlendStage   bool          `env:"ENABLE_BLEND_STAGE" envDefault:"true"`
	EnableEnhanceStage bool          `env:"ENABLE_ENHANCE_STAGE" envDefault:"true"`
	BlendTimeout       time.Duration `env:"BLEND_TIMEOUT" envDefault:"120s"`
	DescribeTimeout    time.Duration `env:"DESCRIBE_TIMEOUT" envDefault:"60s"`
	EnhanceTimeout     time.Duration `env:"ENHANCE_TIMEOUT" envDefault:"120s"`
	StageMaxRetries    int           `env:"STAGE_MAX_RETRIES" envDefault:"2"`
	StageRetryBaseMs   int           `env:"STAGE_RETRY_BASE_MS" envDefault:"500"`

	// 积分配置
	SignupCredits int `env:"SIGNUP_CREDITS" envDefault:"5"`

	JWTSecret            string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	JWTIssuer            string `env:"JWT_ISSUER" envDefault:"pokefusion-app"`
	JWTExpirationMinutes int    `env:"JWT_EXPIRATION_MINUTES" envDefault:"1440"`
}

func ParseConfig() (Config, error) {
	var Conf Config
	err := env.Parse(&Conf)
	if err != nil {
		logrus.WithError(err).Error("env.Parse error")
		return Config{}, err
	}
	logrus.Debugf("%#v\n", Conf)
	return Conf, nil
}
