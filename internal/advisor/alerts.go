package advisor

import (
	"fmt"
	"time"

	"potager/internal/types"
)

// alertWindowDays is the lookahead alerts are derived over: the two
// civil days after the run date.
const alertWindowDays = 2

// deriveAlerts inspects the short-term forecast and returns the
// warnings worth surfacing in the report. Heat is reported as a day
// count, heavy rain as the summed depth over the window.
func deriveAlerts(series *types.WeatherSeries, asOf time.Time) types.AlertList {
	var alerts types.AlertList

	if hot := series.HotDays(asOf, alertWindowDays, types.HeatAlertTempC); hot > 0 {
		alerts = append(alerts, types.Alert{
			Type:    types.AlertHeatWave,
			Message: fmt.Sprintf("%d day(s) at or above %.0f°C in the next 48h", hot, types.HeatAlertTempC),
			Count:   hot,
		})
	}

	if rain := series.RainWindow(asOf, alertWindowDays); rain >= types.HeavyRainAlert48hMM {
		alerts = append(alerts, types.Alert{
			Type:    types.AlertHeavyRain,
			Message: fmt.Sprintf("%.1f mm expected within 48h", rain),
			ValueMM: rain,
		})
	}

	return alerts
}
