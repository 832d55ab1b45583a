package models

import "errors"

var errInvalidMember = errors.New("models: exactly one of artifact_uuid, group_id, member_set_id must be set")
