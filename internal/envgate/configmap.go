package envgate

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// NewClientsetFromConfig is a package-level variable for creating a clientset
// from a rest.Config, replaced in tests.
var NewClientsetFromConfig = func(c *rest.Config) (kubernetes.Interface, error) {
	return kubernetes.NewForConfig(c)
}

// ConfigMapRef identifies the ConfigMap that holds environment values.
type ConfigMapRef struct {
	Namespace  string
	Name       string
	Kubeconfig string
	Context    string
}

// NewClientset builds a clientset from kubeconfig loading rules, honouring an
// explicit kubeconfig path and context override.
func NewClientset(ref ConfigMapRef) (kubernetes.Interface, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if ref.Kubeconfig != "" {
		loadingRules.ExplicitPath = ref.Kubeconfig
	}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: ref.Context}
	kubeConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides)

	restConfig, err := kubeConfig.ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}
	clientset, err := NewClientsetFromConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}
	return clientset, nil
}

// LoadConfigMapSource snapshots the data of a ConfigMap into a MapSource.
// The snapshot is taken once so gate evaluation stays side-effect free.
func LoadConfigMapSource(ctx context.Context, client kubernetes.Interface, namespace, name string) (MapSource, error) {
	if namespace == "" {
		namespace = metav1.NamespaceDefault
	}
	cm, err := client.CoreV1().ConfigMaps(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get configmap %s/%s: %w", namespace, name, err)
	}

	out := make(MapSource, len(cm.Data)+len(cm.BinaryData))
	for k, v := range cm.BinaryData {
		out[k] = string(v)
	}
	for k, v := range cm.Data {
		out[k] = v
	}
	return out, nil
}
