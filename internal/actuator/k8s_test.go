package actuator

import (
	"testing"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaosduck/chaosduck/internal/safety"
)

func podWithLabels(name string, labels map[string]string) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "default", Labels: labels},
		Status:     corev1.PodStatus{Phase: corev1.PodRunning},
	}
}

func newK8sActuator(objs ...client.Object) *K8sActuator {
	c := fake.NewClientBuilder().WithScheme(scheme.Scheme).WithObjects(objs...).Build()
	return &K8sActuator{Client: c, Log: logr.Discard()}
}

func TestK8sActuator_Supports(t *testing.T) {
	a := newK8sActuator()
	assert.True(t, a.Supports(ChaosPodDelete))
	assert.True(t, a.Supports(ChaosCPUStress))
	assert.False(t, a.Supports(ChaosEC2Stop))
}

func TestK8sActuator_PodDelete_DryRunPerformsNoMutation(t *testing.T) {
	a := newK8sActuator(
		podWithLabels("web-1", map[string]string{"app": "web"}),
		podWithLabels("web-2", map[string]string{"app": "web"}),
	)
	emergencyStop := safety.NewEmergencyStop()

	result, compensate, _, err := a.Actuate(t.Context(), emergencyStop, ActuateRequest{
		ChaosType:  ChaosPodDelete,
		Target:     TargetSelector{Namespace: "default", Labels: map[string]string{"app": "web"}},
		Parameters: map[string]any{"count": float64(1)},
		Safety:     SafetyEnvelope{DryRun: true, MaxBlastRadius: 1.0},
	})

	require.NoError(t, err)
	assert.Nil(t, compensate)
	assert.Equal(t, true, result["dry_run"])
}

func TestK8sActuator_PodDelete_DeletesAndPushesCompensate(t *testing.T) {
	a := newK8sActuator(
		podWithLabels("web-1", map[string]string{"app": "web"}),
	)
	emergencyStop := safety.NewEmergencyStop()

	result, compensate, description, err := a.Actuate(t.Context(), emergencyStop, ActuateRequest{
		ChaosType:  ChaosPodDelete,
		Target:     TargetSelector{Namespace: "default", Labels: map[string]string{"app": "web"}},
		Parameters: map[string]any{"count": float64(1)},
		Safety:     SafetyEnvelope{MaxBlastRadius: 1.0},
	})

	require.NoError(t, err)
	require.NotNil(t, compensate)
	assert.NotEmpty(t, description)
	deleted, _ := result["deleted_pods"].([]string)
	assert.Equal(t, []string{"web-1"}, deleted)
}

func TestK8sActuator_BlastRadiusExceededRefusesMutation(t *testing.T) {
	a := newK8sActuator(
		podWithLabels("web-1", map[string]string{"app": "web"}),
		podWithLabels("web-2", map[string]string{"app": "web"}),
		podWithLabels("web-3", map[string]string{"app": "web"}),
	)
	emergencyStop := safety.NewEmergencyStop()

	_, _, _, err := a.Actuate(t.Context(), emergencyStop, ActuateRequest{
		ChaosType:  ChaosPodDelete,
		Target:     TargetSelector{Namespace: "default", Labels: map[string]string{"app": "web"}},
		Parameters: map[string]any{"count": float64(3)},
		Safety:     SafetyEnvelope{MaxBlastRadius: 0.3},
	})

	var blastErr *safety.BlastRadiusExceededError
	assert.ErrorAs(t, err, &blastErr)
}

func TestK8sActuator_EmergencyStopRefusesMutation(t *testing.T) {
	a := newK8sActuator(podWithLabels("web-1", map[string]string{"app": "web"}))
	emergencyStop := safety.NewEmergencyStop()
	emergencyStop.Trigger()

	_, _, _, err := a.Actuate(t.Context(), emergencyStop, ActuateRequest{
		ChaosType: ChaosPodDelete,
		Target:    TargetSelector{Namespace: "default"},
		Safety:    SafetyEnvelope{MaxBlastRadius: 1.0},
	})

	var stopErr *safety.EmergencyStopActiveError
	assert.ErrorAs(t, err, &stopErr)
}

func TestK8sActuator_GetSteadyState(t *testing.T) {
	a := newK8sActuator(
		podWithLabels("web-1", map[string]string{"app": "web"}),
		podWithLabels("web-2", map[string]string{"app": "web"}),
	)

	state, err := a.GetSteadyState(t.Context(), "default")
	require.NoError(t, err)
	assert.Equal(t, 2, state.PodsTotal)
	assert.Equal(t, 2, state.PodsRunning)
	assert.Equal(t, 1.0, state.PodsHealthyRatio)
}
