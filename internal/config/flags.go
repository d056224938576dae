package config

import "github.com/spf13/pflag"

// Flags captures command-line values. Only flags the user actually set
// override the file and environment layers.
type Flags struct {
	ConfigPath string

	fs     *pflag.FlagSet
	values Config
}

// BindFlags registers every setting on fs.
func BindFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs, values: Default()}
	v := &f.values

	fs.StringVar(&f.ConfigPath, "config", "", "YAML config file (default $XDG_CONFIG_HOME/qrshare/config.yaml)")
	fs.IntVarP(&v.Port, "port", "p", v.Port, "port to listen on (0 picks a random port in [1024, 65535))")
	fs.IntVar(&v.Scale, "scale", v.Scale, "pixels per QR module in the PNG")
	fs.IntVar(&v.Border, "border", v.Border, "light border around the code, in modules")
	fs.StringVar(&v.Level, "level", v.Level, "QR error-correction level: L, M, Q or H")
	fs.StringVarP(&v.Output, "output", "o", v.Output, "where to write the QR code PNG")
	fs.StringVar(&v.Display, "display", v.Display, "terminal code: auto, qrencode, builtin or none")
	fs.StringVar(&v.QREncode, "qrencode", v.QREncode, "qrencode executable used for the terminal code")
	fs.BoolVar(&v.Once, "once", v.Once, "exit after the first completed download")
	fs.BoolVar(&v.Debug, "debug", v.Debug, "enable debug logging")
	fs.StringVar(&v.LogFormat, "log-format", v.LogFormat, "log format: text or json")
	return f
}

func (f *Flags) apply(c *Config) {
	if f.fs == nil {
		return
	}
	changed := f.fs.Changed
	if changed("port") {
		c.Port = f.values.Port
	}
	if changed("scale") {
		c.Scale = f.values.Scale
	}
	if changed("border") {
		c.Border = f.values.Border
	}
	if changed("level") {
		c.Level = f.values.Level
	}
	if changed("output") {
		c.Output = f.values.Output
	}
	if changed("display") {
		c.Display = f.values.Display
	}
	if changed("qrencode") {
		c.QREncode = f.values.QREncode
	}
	if changed("once") {
		c.Once = f.values.Once
	}
	if changed("debug") {
		c.Debug = f.values.Debug
	}
	if changed("log-format") {
		c.LogFormat = f.values.LogFormat
	}
}
