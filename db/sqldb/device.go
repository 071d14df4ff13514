package sqldb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nutriscan/nutriscan-be/model"
	"github.com/upper/db/v4"
)

type DeviceDB struct {
	sess db.Session
}

func getDeviceDB(sess db.Session) *DeviceDB {
	return &DeviceDB{sess}
}

// UpsertDevice registers a push token for the user, re-enabling it when it was
// registered before.
func (ddb *DeviceDB) UpsertDevice(ctx context.Context, device *model.Device) (*model.Device, error) {
	var saved model.Device
	err := ddb.sess.TxContext(ctx, func(sess db.Session) error {
		updatedAt := now()
		err := sess.SQL().
			Select("*").
			From("device").
			Where("user_id = ? AND token_hash = ?", device.UserId, device.TokenHash).
			IteratorContext(ctx).
			One(&saved)
		switch {
		case errors.Is(err, db.ErrNoMoreRows):
			res, err := sess.SQL().
				InsertInto("device").
				Columns("user_id", "platform", "token_hash", "endpoint_arn", "enabled", "created_at", "updated_at").
				Values(device.UserId, device.Platform, device.TokenHash, device.EndpointArn, true, updatedAt, updatedAt).
				ExecContext(ctx)
			if err != nil {
				return err
			}
			saved = *device
			saved.Enabled = true
			saved.CreatedAt = updatedAt
			saved.UpdatedAt = updatedAt
			saved.Id, err = res.LastInsertId()
			return err
		case err != nil:
			return err
		}

		if _, err := sess.SQL().
			Update("device").
			Set("platform = ?, endpoint_arn = ?, enabled = ?, updated_at = ?",
				device.Platform, device.EndpointArn, true, updatedAt).
			Where("id = ?", saved.Id).
			ExecContext(ctx); err != nil {
			return err
		}
		saved.Platform = device.Platform
		saved.EndpointArn = device.EndpointArn
		saved.Enabled = true
		saved.UpdatedAt = updatedAt
		return nil
	}, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (ddb *DeviceDB) GetDevicesForUser(ctx context.Context, userId string) ([]*model.Device, error) {
	devices := []*model.Device{}
	if err := ddb.sess.SQL().
		Select("*").
		From("device").
		Where("user_id = ? AND enabled = ?", userId, true).
		OrderBy("id").
		IteratorContext(ctx).
		All(&devices); err != nil {
		return nil, err
	}
	return devices, nil
}

func (ddb *DeviceDB) DisableDevice(ctx context.Context, id int64) error {
	res, err := ddb.sess.SQL().
		Update("device").
		Set("enabled = ?, updated_at = ?", false, now()).
		Where("id = ?", id).
		ExecContext(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
