package rylr

// AT command set for the REYAX RYLR896 transceiver. Commands are text lines
// terminated by CRLF; each one is answered with exactly one line.
const (
	CRLF = "\r\n"

	CmdNetworkKeySet = "AT+CPIN="

	CmdPing        = "AT?"
	CmdAddress     = "AT+ADDRESS?"
	CmdFirmware    = "AT+VER?"
	CmdNetworkID   = "AT+NETWORKID?"
	CmdUARTRate    = "AT+IPR?"
	CmdBand        = "AT+BAND?"
	CmdOutputPower = "AT+CRFOP?"
	CmdWorkMode    = "AT+MODE?"
	CmdParameters  = "AT+PARAMETER?"
	CmdNetworkKey  = "AT+CPIN?"
)

// ConfigQuery pairs one AT query with the label its response is reported
// under.
type ConfigQuery struct {
	Command string
	Label   string
}

// diagnosticQueries is the fixed setup script issued, in order, by
// Session.RunDiagnostics.
var diagnosticQueries = []ConfigQuery{
	{CmdPing, "module responding"},
	{CmdAddress, "address"},
	{CmdFirmware, "firmware version"},
	{CmdNetworkID, "network id"},
	{CmdUARTRate, "uart baud rate"},
	{CmdBand, "rf frequency"},
	{CmdOutputPower, "rf output power"},
	{CmdWorkMode, "work mode"},
	{CmdParameters, "rf parameters"},
	{CmdNetworkKey, "network key"},
}
