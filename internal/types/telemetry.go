package types

// Telemetry metric names for CloudWatch.
// All components MUST use these constants.
const (
	// Metric Names
	MetricCycleSuccess       = "CycleSuccess"
	MetricCycleFailure       = "CycleFailure"
	MetricCycleDuration      = "CycleDurationMs"
	MetricUnitsAssessed      = "UnitsAssessed"
	MetricUnitsNeedingWater  = "UnitsNeedingWater"
	MetricWeatherFetchFailed = "WeatherFetchFailure"
	MetricWeatherWarnings    = "WeatherWarnings"
	MetricReportQueued       = "ReportQueued"
	MetricReportSent         = "ReportSent"
	MetricReportFailed       = "ReportFailed"
	MetricAPILatency         = "APILatency"
	MetricExternalAPIFailure = "ExternalAPIFailure"

	// Dimension Keys
	DimTrigger  = "Trigger"
	DimAdvice   = "Advice"
	DimEndpoint = "Endpoint"
	DimProvider = "Provider"
	DimQueue    = "Queue"

	// Metric Namespace
	MetricNamespace = "Potager"
)

// Daily weather variables requested from the forecast provider.
// Canonical keys for normalization and archive replay; these MUST match
// the provider's daily variable names exactly.
const (
	WxVarTempMax   = "temperature_2m_max"
	WxVarRainSum   = "precipitation_sum"
	WxVarRadiation = "shortwave_radiation_sum"
	WxVarWindMax   = "windspeed_10m_max"
	WxVarET0       = "et0_fao_evapotranspiration"
)
