package utils

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func GetUUID() string {
	u1, err := uuid.NewUUID()
	if err != nil {
		logrus.Errorf("[utils] generate uuid fail, err = %v", err)
		return uuid.NewString()
	}
	return u1.String()
}
