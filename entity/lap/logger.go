package lap

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "lap")
