package command

const (
	JSONOutputFlag   = "json"
	DataDirFlag      = "data-dir"
	LogLevelFlag     = "log-level"
	PprofFlag        = "pprof"
	PprofAddressFlag = "pprof-address"
)

const (
	DefaultLogLevel     = "INFO"
	DefaultPprofAddress = "localhost:6060"
)
