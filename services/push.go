package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	db2 "github.com/nutriscan/nutriscan-be/db"
	"github.com/nutriscan/nutriscan-be/model"
	"go.uber.org/zap"
)

var ErrUnknownPlatform = errors.New("platform must be android or ios")

type snsAPI interface {
	CreatePlatformEndpoint(ctx context.Context, params *awssns.CreatePlatformEndpointInput, optFns ...func(*awssns.Options)) (*awssns.CreatePlatformEndpointOutput, error)
	Publish(ctx context.Context, params *awssns.PublishInput, optFns ...func(*awssns.Options)) (*awssns.PublishOutput, error)
}

// PushService registers device tokens as SNS platform endpoints and publishes to them.
type PushService struct {
	devices db2.DeviceDatabase
	sns     snsAPI
	fcmArn  string
	apnsArn string
	log     *zap.Logger
}

func NewPushService(devices db2.DeviceDatabase, cfg aws.Config, fcmArn string, apnsArn string, log *zap.Logger) *PushService {
	return newPushService(devices, awssns.NewFromConfig(cfg), fcmArn, apnsArn, log)
}

func newPushService(devices db2.DeviceDatabase, client snsAPI, fcmArn string, apnsArn string, log *zap.Logger) *PushService {
	return &PushService{
		devices: devices,
		sns:     client,
		fcmArn:  fcmArn,
		apnsArn: apnsArn,
		log:     log,
	}
}

func TokenHash(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

func (p *PushService) platformArn(platform string) (string, error) {
	switch platform {
	case "android":
		if p.fcmArn != "" {
			return p.fcmArn, nil
		}
	case "ios":
		// expo and react native firebase route ios tokens through FCM too
		if p.apnsArn != "" {
			return p.apnsArn, nil
		}
		if p.fcmArn != "" {
			return p.fcmArn, nil
		}
	default:
		return "", ErrUnknownPlatform
	}
	return "", fmt.Errorf("no platform application configured for %s", platform)
}

func (p *PushService) RegisterDevice(ctx context.Context, userId string, platform string, token string) (*model.Device, error) {
	platform = strings.ToLower(strings.TrimSpace(platform))
	appArn, err := p.platformArn(platform)
	if err != nil {
		return nil, err
	}
	out, err := p.sns.CreatePlatformEndpoint(ctx, &awssns.CreatePlatformEndpointInput{
		PlatformApplicationArn: aws.String(appArn),
		Token:                  aws.String(token),
		CustomUserData:         aws.String(userId),
	})
	if err != nil {
		return nil, fmt.Errorf("create platform endpoint: %w", err)
	}
	return p.devices.UpsertDevice(ctx, &model.Device{
		UserId:      userId,
		Platform:    platform,
		TokenHash:   TokenHash(token),
		EndpointArn: aws.ToString(out.EndpointArn),
	})
}

type gcmPayload struct {
	Notification map[string]string `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type apnsPayload struct {
	Aps  map[string]interface{} `json:"aps"`
	Data map[string]string      `json:"data,omitempty"`
}

func buildMessage(title string, body string, data map[string]string) (string, error) {
	gcm, err := json.Marshal(gcmPayload{
		Notification: map[string]string{"title": title, "body": body},
		Data:         data,
	})
	if err != nil {
		return "", err
	}
	apns, err := json.Marshal(apnsPayload{
		Aps:  map[string]interface{}{"alert": map[string]string{"title": title, "body": body}, "sound": "default"},
		Data: data,
	})
	if err != nil {
		return "", err
	}
	// SNS expects each platform payload as an embedded JSON string
	msg, err := json.Marshal(map[string]string{
		"default":      body,
		"GCM":          string(gcm),
		"APNS":         string(apns),
		"APNS_SANDBOX": string(apns),
	})
	return string(msg), err
}

// PushToUser publishes to every enabled device of the user. Endpoints SNS reports
// as disabled are switched off so they are skipped next time.
func (p *PushService) PushToUser(ctx context.Context, userId string, title string, body string, data map[string]string) error {
	devices, err := p.devices.GetDevicesForUser(ctx, userId)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return nil
	}
	msg, err := buildMessage(title, body, data)
	if err != nil {
		return err
	}

	var errs []error
	for _, device := range devices {
		_, err := p.sns.Publish(ctx, &awssns.PublishInput{
			MessageStructure: aws.String("json"),
			Message:          aws.String(msg),
			TargetArn:        aws.String(device.EndpointArn),
		})
		if err == nil {
			continue
		}
		var disabled *snstypes.EndpointDisabledException
		if errors.As(err, &disabled) {
			p.log.Info("disabling push endpoint", zap.String("userId", userId), zap.Int64("deviceId", device.Id))
			if err := p.devices.DisableDevice(ctx, device.Id); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		errs = append(errs, fmt.Errorf("publish to device %d: %w", device.Id, err))
	}
	return errors.Join(errs...)
}
