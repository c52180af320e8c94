package migrations

import (
	"regexp"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

// PrometheusMetricRecord is a metric definition whose query may reference
// environment variables.
type PrometheusMetricRecord struct {
	ID         uint   `gorm:"primaryKey"`
	ProjectID  *uint  `gorm:"index"`
	Identifier string `gorm:"size:255;index"`
	Title      string `gorm:"size:255;not null"`
	Query      string `gorm:"type:text;not null"`
	YLabel     string `gorm:"size:255"`
	Unit       string `gorm:"size:32"`
	Legend     string `gorm:"size:255"`
	Group      int    `gorm:"not null"`
	Common     bool   `gorm:"not null;default:false;index"`
}

// TableName defines the table name for the PrometheusMetricRecord model.
func (PrometheusMetricRecord) TableName() string {
	return "prometheus_metrics"
}

const interpolationFormatVersion = "20200511145545_change_variable_interpolation_format_in_common_metrics"

var legacyVariablePattern = regexp.MustCompile(`%\{([A-Za-z0-9_]+)\}`)

// DataMigrations lists the data migrations shipped with the application.
func DataMigrations() []Migration {
	return []Migration{
		{Version: interpolationFormatVersion, Up: changeVariableInterpolationFormat},
	}
}

// ConvertInterpolation rewrites %{name} references to {{name}}.
func ConvertInterpolation(query string) string {
	return legacyVariablePattern.ReplaceAllString(query, "{{$1}}")
}

func changeVariableInterpolationFormat(tx *gorm.DB) error {
	var metrics []PrometheusMetricRecord
	if err := tx.Where("common = ?", true).Find(&metrics).Error; err != nil {
		return eris.Wrap(err, "loading common metrics")
	}

	for _, metric := range metrics {
		converted := ConvertInterpolation(metric.Query)
		if converted == metric.Query {
			continue
		}

		if err := tx.Model(&PrometheusMetricRecord{}).
			Where("id = ?", metric.ID).
			Update("query", converted).Error; err != nil {
			return eris.Wrapf(err, "updating query of metric %s", metric.Identifier)
		}
	}

	return nil
}
