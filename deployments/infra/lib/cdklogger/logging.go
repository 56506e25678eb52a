package cdklogger

import (
	"fmt"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// format prefixes the message with the construct id unless the scope path
// already ends with it.
func format(scope constructs.Construct, constructID string, msg string, args ...any) *string {
	message := fmt.Sprintf(msg, args...)
	if constructID == "" {
		return jsii.String(message)
	}
	cdkPath := *scope.Node().Path()
	if strings.HasSuffix(cdkPath, "/"+constructID) || cdkPath == constructID {
		return jsii.String(message)
	}
	return jsii.String(fmt.Sprintf("[%s] %s", constructID, message))
}

// LogInfo adds an INFO level message to the construct's metadata, printed
// during `cdk synth`.
func LogInfo(scope constructs.Construct, constructID string, msg string, args ...any) {
	awscdk.Annotations_Of(scope).AddInfo(format(scope, constructID, msg, args...))
}

// LogWarning adds a WARNING level message to the construct's metadata.
func LogWarning(scope constructs.Construct, constructID string, msg string, args ...any) {
	awscdk.Annotations_Of(scope).AddWarning(format(scope, constructID, msg, args...))
}
